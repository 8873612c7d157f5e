package job

import "time"

// Options configures per-job behavior such as priority, timeout, attempt
// budget, and submission delay. Zero values fall back to the engine's
// configured defaults.
type Options struct {
	// Priority determines dequeue ordering. Higher values are dispatched
	// first; within a priority tier, jobs run in submission order.
	Priority int

	// Timeout is the maximum duration one attempt may run before it is
	// timed out and the executor recycled.
	Timeout time.Duration

	// MaxAttempts is the total attempt budget, including the first run.
	MaxAttempts int

	// Delay holds the job back for this long before it is enqueued.
	Delay time.Duration
}

// Option is a functional option for configuring a job submission.
type Option func(*Options)

// WithPriority sets the job priority. Higher values are dispatched first.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// WithTimeout sets the maximum execution duration per attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxAttempts sets the total attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithDelay holds the job back for d before it becomes eligible to run.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = d
	}
}
