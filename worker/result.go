package worker

import (
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
)

// Result is the outcome of one task execution, delivered asynchronously
// on the pool's results channel. Exactly one Result is posted per task
// handed to an executor; the engine ignores results for tasks it no
// longer tracks (timeout and cancellation races).
type Result struct {
	TaskID   id.TaskID
	JobID    id.JobID
	WorkerID id.WorkerID
	Output   []byte
	Err      error
	Code     sommos.FailureCode
	Elapsed  time.Duration
}

// Exit signals that an executor goroutine died unexpectedly. The pool
// replaces the executor when the engine routes the exit back to it.
type Exit struct {
	WorkerID id.WorkerID
	Cause    error
}
