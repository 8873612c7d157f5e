package job

import (
	"time"

	"github.com/Thijssvd/SommOS-sub001/id"
)

// Task is the ephemeral dispatch unit for one attempt of a Job. It holds
// copies of the fields an executor needs; no coordinator-owned Job memory
// crosses the executor boundary.
type Task struct {
	ID      id.TaskID
	JobID   id.JobID
	Type    string
	Payload []byte
	Attempt int
	Timeout time.Duration
}

// NewTask derives the dispatch unit for the given attempt of j.
func NewTask(j *Job, attempt int) *Task {
	return &Task{
		ID:      id.NewTaskID(),
		JobID:   j.ID,
		Type:    j.Type,
		Payload: append([]byte(nil), j.Payload...),
		Attempt: attempt,
		Timeout: j.Timeout,
	}
}
