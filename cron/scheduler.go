package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// SubmitFunc is the callback the scheduler uses to submit jobs.
// This breaks the import cycle: the engine provides the implementation.
type SubmitFunc func(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (id.JobID, error)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler fires recurring entries on a tick loop, submitting a fresh
// job for each due entry. Entries live in memory; registering the same
// set at startup makes schedules survive restarts.
type Scheduler struct {
	submit SubmitFunc
	logger *slog.Logger

	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	byName  map[string]string

	// parsed caches compiled cron expressions by source text.
	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewScheduler creates a Scheduler that submits due jobs through submit.
func NewScheduler(submit SubmitFunc, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		submit:       submit,
		logger:       logger.With(slog.String("component", "cron")),
		tickInterval: 1 * time.Second,
		entries:      make(map[string]*Entry),
		byName:       make(map[string]string),
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a recurring entry. The schedule is validated here; the
// first fire happens at the expression's next activation after now.
func (s *Scheduler) Add(name, schedule, jobType string, payload []byte, opts ...job.Option) (*Entry, error) {
	sched, err := s.getOrParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("cron %q: parse schedule %q: %w", name, schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return nil, fmt.Errorf("cron %q: %w", name, sommos.ErrDuplicateJob)
	}

	next := sched.Next(time.Now().UTC())
	e := &Entry{
		Entity:    sommos.NewEntity(),
		ID:        id.NewCronID(),
		Name:      name,
		Schedule:  schedule,
		JobType:   jobType,
		Payload:   append([]byte(nil), payload...),
		Opts:      opts,
		NextRunAt: &next,
		Enabled:   true,
	}
	s.entries[e.ID.String()] = e
	s.byName[name] = e.ID.String()

	s.logger.Info("cron entry registered",
		slog.String("cron_name", name),
		slog.String("schedule", schedule),
		slog.String("job_type", jobType),
		slog.Time("next_run_at", next))
	return e.clone(), nil
}

// Remove deletes an entry by name.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.entries, key)
	delete(s.byName, name)
	return true
}

// SetEnabled pauses or resumes an entry. Disabled entries stay
// registered but never fire.
func (s *Scheduler) SetEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byName[name]
	if !ok {
		return false
	}
	e := s.entries[key]
	e.Enabled = enabled
	e.Touch()
	if enabled {
		// Recompute from now so a long pause doesn't fire immediately
		// for every missed activation.
		if sched, err := s.getOrParseSchedule(e.Schedule); err == nil {
			next := sched.Next(time.Now().UTC())
			e.NextRunAt = &next
		}
	}
	return true
}

// List returns copies of all entries.
func (s *Scheduler) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	return out
}

// Get returns a copy of the named entry.
func (s *Scheduler) Get(name string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.entries[key].clone(), true
}

// Start launches the tick loop.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the scheduler to stop and waits for the tick loop.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.Lock()
	var due []*Entry
	for _, e := range s.entries {
		if !e.Enabled || e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.fire(e, now)
	}
}

// fire submits one due entry and advances its schedule. A failed
// submission (queue full, engine stopping) still advances NextRunAt;
// recurring work catches up on its next activation rather than
// hammering a full queue every tick.
func (s *Scheduler) fire(e *Entry, now time.Time) {
	jobID, err := s.submit(context.Background(), e.JobType, e.Payload, e.Opts...)
	if err != nil {
		s.logger.Error("cron submit failed",
			slog.String("cron_name", e.Name),
			slog.String("job_type", e.JobType),
			slog.String("error", err.Error()))
	}

	sched, parseErr := s.getOrParseSchedule(e.Schedule)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, still := s.entries[e.ID.String()]; !still {
		return
	}
	t := now
	e.LastRunAt = &t
	if err == nil {
		e.LastJobID = jobID
	}
	if parseErr == nil {
		next := sched.Next(now)
		e.NextRunAt = &next
	}
	e.Touch()

	if err == nil {
		s.logger.Info("cron fired",
			slog.String("cron_name", e.Name),
			slog.String("job_type", e.JobType),
			slog.String("job_id", jobID.String()))
	}
}

func (s *Scheduler) getOrParseSchedule(expr string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[expr]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[expr] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
