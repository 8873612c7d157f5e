package job

import (
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusQueued means the job is waiting for an executor. Jobs held
	// for an initial delay or a retry backoff are also queued.
	StatusQueued Status = "queued"
	// StatusRunning means an executor is currently working the job.
	StatusRunning Status = "running"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed and its attempt budget is spent.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Attempt is one audit record per dispatch attempt of a job.
type Attempt struct {
	Number    int                `json:"number"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at"`
	Code      sommos.FailureCode `json:"code,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Job represents a retryable unit of work owned by the engine until it
// reaches a terminal state.
type Job struct {
	sommos.Entity

	ID           id.JobID      `json:"id"`
	Type         string        `json:"type"`
	Payload      []byte        `json:"payload"`
	Priority     int           `json:"priority"`
	MaxAttempts  int           `json:"max_attempts"`
	AttemptCount int           `json:"attempt_count"`
	Timeout      time.Duration `json:"timeout"`
	Status       Status        `json:"status"`
	NextRunAt    time.Time     `json:"next_run_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	FailedAt     *time.Time    `json:"failed_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	Result       []byte        `json:"result,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	Attempts     []Attempt     `json:"attempts,omitempty"`
}

// Clone returns a deep copy of the job. The engine hands out clones so
// callers can never observe (or mutate) coordinator-owned state.
func (j *Job) Clone() *Job {
	c := *j
	if j.Payload != nil {
		c.Payload = append([]byte(nil), j.Payload...)
	}
	if j.Result != nil {
		c.Result = append([]byte(nil), j.Result...)
	}
	if j.Attempts != nil {
		c.Attempts = append([]Attempt(nil), j.Attempts...)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.FailedAt != nil {
		t := *j.FailedAt
		c.FailedAt = &t
	}
	if j.CancelledAt != nil {
		t := *j.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
