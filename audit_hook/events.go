package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionJobQueued     = "job.queued"
	ActionJobStarted    = "job.started"
	ActionJobCompleted  = "job.completed"
	ActionJobFailed     = "job.failed"
	ActionJobRetrying   = "job.retrying"
	ActionJobCancelled  = "job.cancelled"
	ActionJobDLQ        = "job.dlq"
	ActionQueueOverflow = "queue.overflow"
	ActionWorkerExited  = "worker.exited"
)

// Audit event categories group related actions.
const (
	CategoryJob    = "scheduler.job"
	CategoryQueue  = "scheduler.queue"
	CategoryWorker = "scheduler.worker"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob    = "job"
	ResourceQueue  = "queue"
	ResourceWorker = "worker"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobQueued,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobRetrying,
		ActionJobCancelled,
		ActionJobDLQ,
		ActionQueueOverflow,
		ActionWorkerExited,
	}
}
