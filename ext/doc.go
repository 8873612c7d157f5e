// Package ext defines the extension system of the scheduler.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, driving notification layers, writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobQueued] — job was accepted for scheduling
//   - [JobStarted] — an executor began working the job
//   - [JobCompleted] — job finished successfully
//   - [JobFailed] — job failed with no attempts remaining
//   - [JobRetrying] — job failed but will be retried after backoff
//   - [JobCancelled] — job was cancelled
//   - [JobDLQ] — job was moved to the dead letter queue
//
// # Pool And Queue Hooks
//
//   - [WorkerCreated] — an executor was spawned (startup or self-heal)
//   - [WorkerExited] — an executor left the pool (crash, timeout recycle,
//     or shutdown)
//   - [QueueOverflow] — a submission was rejected because the queue was
//     at capacity
//   - [Shutdown] — the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hooks run synchronously on
// the coordinator goroutine: keep them fast and never retain the Job
// pointer past the call.
package ext
