package cron

import (
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// Entry is one recurring schedule. Each time it fires, a new job of
// JobType is submitted with the stored payload and options.
type Entry struct {
	sommos.Entity

	ID        id.CronID    `json:"id"`
	Name      string       `json:"name"`
	Schedule  string       `json:"schedule"`
	JobType   string       `json:"job_type"`
	Payload   []byte       `json:"payload,omitempty"`
	Opts      []job.Option `json:"-"`
	LastRunAt *time.Time   `json:"last_run_at,omitempty"`
	NextRunAt *time.Time   `json:"next_run_at,omitempty"`
	LastJobID id.JobID     `json:"last_job_id,omitempty"`
	Enabled   bool         `json:"enabled"`
}

// clone returns a copy safe to hand outside the scheduler.
func (e *Entry) clone() *Entry {
	c := *e
	if e.Payload != nil {
		c.Payload = append([]byte(nil), e.Payload...)
	}
	if e.LastRunAt != nil {
		t := *e.LastRunAt
		c.LastRunAt = &t
	}
	if e.NextRunAt != nil {
		t := *e.NextRunAt
		c.NextRunAt = &t
	}
	return &c
}
