package sommos

import (
	"runtime"
	"time"
)

// Config holds configuration for the scheduling engine.
type Config struct {
	// Concurrency is the number of executors in the pool. The pool always
	// holds exactly this many live executors; a crashed executor is
	// replaced to restore the count. Use the default for CPU-bound work
	// and a small fixed number for I/O-bound pools.
	Concurrency int

	// QueueCapacity bounds how many jobs may wait for an executor.
	// Submissions beyond it are rejected with ErrQueueFull.
	QueueCapacity int

	// DefaultTimeout applies to jobs submitted without an explicit
	// per-job timeout.
	DefaultTimeout time.Duration

	// DefaultMaxAttempts applies to jobs submitted without an explicit
	// attempt budget.
	DefaultMaxAttempts int

	// RetryBaseDelay is the backoff base: a job that failed attempt k is
	// re-enqueued after RetryBaseDelay * 2^(k-1).
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration

	// MetricsWindow is how many recent completions feed the rolling
	// processing-time percentiles.
	MetricsWindow int

	// ShutdownTimeout is the maximum time Stop waits for in-flight tasks
	// before cancelling them.
	ShutdownTimeout time.Duration

	// LimiterRetryInterval is how long the dispatcher waits before
	// re-checking a rate-limited job type.
	LimiterRetryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:          runtime.NumCPU(),
		QueueCapacity:        1024,
		DefaultTimeout:       5 * time.Minute,
		DefaultMaxAttempts:   3,
		RetryBaseDelay:       1 * time.Second,
		RetryMaxDelay:        1 * time.Minute,
		MetricsWindow:        100,
		ShutdownTimeout:      30 * time.Second,
		LimiterRetryInterval: 25 * time.Millisecond,
	}
}
