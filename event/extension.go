package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Thijssvd/SommOS-sub001/ext"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// Event names published by the lifecycle bridge. Subscribers can also
// wait on the per-job form "<name>:<job_id>" to observe one specific
// job.
const (
	JobCompleted = "job.completed"
	JobFailed    = "job.failed"
	JobCancelled = "job.cancelled"
	JobDLQ       = "job.dlq"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobCancelled = (*Extension)(nil)
	_ ext.JobDLQ       = (*Extension)(nil)
)

// Extension publishes terminal job transitions to a Bus. Register it
// on the engine to let external code wait for job outcomes through
// Bus.Subscribe instead of polling Status.
type Extension struct {
	bus *Bus
}

// NewExtension creates the lifecycle bridge for the given bus.
func NewExtension(bus *Bus) *Extension {
	return &Extension{bus: bus}
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "event-bridge" }

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.publish(ctx, JobCompleted, j, "")
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return e.publish(ctx, JobFailed, j, errString(jobErr))
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return e.publish(ctx, JobCancelled, j, "")
}

// OnJobDLQ implements ext.JobDLQ.
func (e *Extension) OnJobDLQ(ctx context.Context, j *job.Job, jobErr error) error {
	return e.publish(ctx, JobDLQ, j, errString(jobErr))
}

// jobPayload is the JSON body of bridged lifecycle events.
type jobPayload struct {
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

func (e *Extension) publish(ctx context.Context, name string, j *job.Job, errMsg string) error {
	payload, err := json.Marshal(jobPayload{
		JobID:    j.ID.String(),
		JobType:  j.Type,
		Attempts: j.AttemptCount,
		Error:    errMsg,
	})
	if err != nil {
		return err
	}
	if _, err := e.bus.Publish(ctx, name, payload); err != nil {
		return err
	}
	_, err = e.bus.Publish(ctx, name+":"+j.ID.String(), payload)
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
