// Package queue provides the pending-work buffer of the scheduler and
// per-job-type dispatch limits.
//
// # Ordering
//
// [Queue] is a bounded priority buffer. Dequeue order is a strict total
// order: priority descending, then arrival order ascending within a
// priority tier. Ties never break by identity; every insertion gets a
// monotonic sequence number. A retried job is a new arrival and joins
// the back of its tier.
//
// The Queue is owned by the engine's coordinator goroutine and is not
// safe for concurrent use on its own.
//
// # Per-Type Limits
//
// [Limiter] enforces per-job-type rate limits and concurrency caps at
// dispatch time. It uses a token-bucket rate limiter
// (golang.org/x/time/rate) and an active-count gate:
//
//	l := queue.NewLimiter(
//	    queue.Config{Type: "ai.pairing", MaxConcurrency: 2},
//	    queue.Config{Type: "inventory.import", RateLimit: 5, RateBurst: 10},
//	)
//	if l.Acquire(jobType) {
//	    // dispatch; call l.Release(jobType) when the task concludes
//	}
//
// Types without a [Config] have no limits beyond the pool size.
package queue
