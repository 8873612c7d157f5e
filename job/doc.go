// Package job defines the job entity, its state machine, typed
// definitions, and the type → handler registry.
//
// # Job Entity
//
// A [Job] represents a retryable unit of work. It embeds [sommos.Entity]
// for timestamps, carries a raw payload (JSON), and progresses through a
// state machine:
//
//	queued → running → completed
//	queued → running → queued (backoff) → running → ...
//	queued → running → failed
//	queued → cancelled
//	queued → running → cancelled (best-effort)
//
// Fields of note:
//   - Priority: higher values are dequeued first; ties break by arrival
//   - MaxAttempts / AttemptCount: attempt budget and attempts consumed
//   - Timeout: per-task execution deadline
//   - NextRunAt: earliest time the job may be dispatched (initial delay
//     or retry backoff)
//   - Attempts: audit history, one record per dispatch attempt
//
// # Defining a Job
//
// Use [Definition] with a typed handler. The payload is JSON-deserialized
// before the handler runs and the handler's result is JSON-serialized
// into Job.Result:
//
//	var ExtractFeatures = job.NewDefinition("pairing.extract",
//	    func(ctx context.Context, input BottleRef) (any, error) {
//	        return features.Extract(ctx, input)
//	    },
//	)
//
// # Registry
//
// [Registry] maps job types to type-erased [HandlerFunc] values. Handler
// resolution happens at execution time, not submission time, so handlers
// may be registered after jobs of that type are already queued.
package job
