package sommos

import "errors"

var (
	// Submission errors.
	ErrQueueFull     = errors.New("sommos: queue full")
	ErrEngineStopped = errors.New("sommos: engine not running")

	// Execution errors.
	ErrNoHandler    = errors.New("sommos: no handler registered")
	ErrTaskTimeout  = errors.New("sommos: task timed out")
	ErrWorkerLost   = errors.New("sommos: worker lost")
	ErrHandlerPanic = errors.New("sommos: handler panicked")

	// Lookup and state errors.
	ErrJobNotFound  = errors.New("sommos: job not found")
	ErrJobFinished  = errors.New("sommos: job already finished")
	ErrDuplicateJob = errors.New("sommos: duplicate job")
)

// FailureCode classifies why a task attempt failed. Codes are recorded on
// the job's attempt history and surfaced with terminal failures.
type FailureCode string

const (
	// CodeHandlerNotFound means no handler was registered for the job's
	// type at execution time. Consumes an attempt; a handler registered
	// later can still serve the retry.
	CodeHandlerNotFound FailureCode = "HANDLER_NOT_FOUND"

	// CodeTaskTimeout means the task exceeded its configured timeout.
	CodeTaskTimeout FailureCode = "TASK_TIMEOUT"

	// CodeWorkerLost means the executor running the task died. The pool
	// self-heals; the job becomes retry-eligible.
	CodeWorkerLost FailureCode = "WORKER_LOST"

	// CodeHandlerThrew means the handler returned an error or panicked.
	CodeHandlerThrew FailureCode = "HANDLER_THREW"

	// CodeQueueFull means the job was rejected because the queue was at
	// capacity. Never applied silently; the submitter sees ErrQueueFull.
	CodeQueueFull FailureCode = "QUEUE_FULL"
)
