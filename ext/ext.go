package ext

import (
	"context"
	"time"

	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobQueued is called after a job is accepted for scheduling, including
// jobs held for an initial delay.
type JobQueued interface {
	OnJobQueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when an executor begins working a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally (no attempts left).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobRetrying is called when a job fails but is re-enqueued after backoff.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobCancelled is called when a job is cancelled, whether it was still
// queued or already running (best-effort).
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// JobDLQ is called when a job is moved to the dead letter queue.
type JobDLQ interface {
	OnJobDLQ(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Pool and queue hooks
// ──────────────────────────────────────────────────

// WorkerCreated is called when the pool spawns an executor, at startup
// or as a self-heal replacement.
type WorkerCreated interface {
	OnWorkerCreated(ctx context.Context, workerID id.WorkerID) error
}

// WorkerExited is called when an executor leaves the pool. cause is nil
// on graceful shutdown.
type WorkerExited interface {
	OnWorkerExited(ctx context.Context, workerID id.WorkerID, cause error) error
}

// QueueOverflow is called when a submission is rejected because the
// queue is at capacity.
type QueueOverflow interface {
	OnQueueOverflow(ctx context.Context, j *job.Job) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
