package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-job-type dispatch limits.
type Config struct {
	// Type is the job type this config applies to.
	Type string

	// MaxConcurrency limits how many jobs of this type may run
	// simultaneously. Zero means no type-specific limit (pool size
	// still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained jobs per second of this type
	// that may be dispatched. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// typeState tracks runtime state for a single job type.
type typeState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Limiter enforces per-job-type rate limits and concurrency caps at
// dispatch time. It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	types map[string]*typeState
}

// NewLimiter creates a Limiter with the given type configurations.
// Types not listed have no limits.
func NewLimiter(configs ...Config) *Limiter {
	l := &Limiter{
		types: make(map[string]*typeState, len(configs)),
	}
	for _, cfg := range configs {
		l.types[cfg.Type] = newTypeState(cfg)
	}
	return l
}

func newTypeState(cfg Config) *typeState {
	ts := &typeState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// Acquire checks rate limits and concurrency for the given job type.
// If the dispatch may proceed it increments the active counter and
// returns true. The caller MUST call Release when the task concludes.
func (l *Limiter) Acquire(jobType string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.types[jobType]
	if ts == nil {
		return true
	}

	// Concurrency first: a blocked type must not burn rate tokens on
	// every dispatch retry while it waits for a slot.
	if ts.config.MaxConcurrency > 0 && ts.active >= ts.config.MaxConcurrency {
		return false
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}

	ts.active++
	return true
}

// Release decrements the active count for the job type.
func (l *Limiter) Release(jobType string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[jobType]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// SetConfig dynamically updates (or creates) a type configuration.
func (l *Limiter) SetConfig(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.types[cfg.Type]
	ts := newTypeState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		ts.active = existing.active
	}
	l.types[cfg.Type] = ts
}

// ActiveCount returns the current number of active jobs of a type.
func (l *Limiter) ActiveCount(jobType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ts := l.types[jobType]; ts != nil {
		return ts.active
	}
	return 0
}
