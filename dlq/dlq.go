// Package dlq provides an in-memory dead letter queue holding jobs that
// exhausted their attempt budget, for inspection and replay.
package dlq

import (
	"context"
	"sort"
	"sync"
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// Entry is a terminally failed job captured with its full attempt
// history for audit.
type Entry struct {
	ID          id.DLQID           `json:"id"`
	JobID       id.JobID           `json:"job_id"`
	Type        string             `json:"type"`
	Payload     []byte             `json:"payload"`
	Error       string             `json:"error"`
	Code        sommos.FailureCode `json:"code"`
	Attempts    []job.Attempt      `json:"attempts"`
	MaxAttempts int                `json:"max_attempts"`
	Priority    int                `json:"priority"`
	FailedAt    time.Time          `json:"failed_at"`
	ReplayedAt  *time.Time         `json:"replayed_at,omitempty"`
}

// Resubmitter re-enters a dead job into the scheduler. The engine
// implements it.
type Resubmitter interface {
	Submit(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (id.JobID, error)
}

// Service holds dead letters and replays them through a Resubmitter.
// Safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewService creates an empty dead letter queue.
func NewService() *Service {
	return &Service{entries: make(map[string]*Entry)}
}

// Push captures a terminally failed job. The error string and failure
// code come from the last attempt.
func (s *Service) Push(j *job.Job, jobErr error, code sommos.FailureCode) *Entry {
	entry := &Entry{
		ID:          id.NewDLQID(),
		JobID:       j.ID,
		Type:        j.Type,
		Payload:     append([]byte(nil), j.Payload...),
		Error:       jobErr.Error(),
		Code:        code,
		Attempts:    append([]job.Attempt(nil), j.Attempts...),
		MaxAttempts: j.MaxAttempts,
		Priority:    j.Priority,
		FailedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[entry.ID.String()] = entry
	s.mu.Unlock()
	return entry
}

// Get returns the entry with the given ID.
func (s *Service) Get(entryID id.DLQID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, sommos.ErrJobNotFound
	}
	return e, nil
}

// List returns all entries, oldest failure first.
func (s *Service) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.Before(out[j].FailedAt) })
	return out
}

// Count returns the number of dead letters.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Purge removes all entries and returns how many were dropped.
func (s *Service) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]*Entry)
	return n
}

// Replay resubmits a dead letter as a new job with a fresh attempt
// budget and marks the entry replayed. The new job keeps the original
// priority and attempt limit.
func (s *Service) Replay(ctx context.Context, r Resubmitter, entryID id.DLQID) (id.JobID, error) {
	s.mu.Lock()
	e, ok := s.entries[entryID.String()]
	s.mu.Unlock()
	if !ok {
		return id.Nil, sommos.ErrJobNotFound
	}

	jobID, err := r.Submit(ctx, e.Type, e.Payload,
		job.WithPriority(e.Priority),
		job.WithMaxAttempts(e.MaxAttempts),
	)
	if err != nil {
		return id.Nil, err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	e.ReplayedAt = &now
	s.mu.Unlock()
	return jobID, nil
}
