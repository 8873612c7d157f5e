// Package sommos provides the asynchronous job scheduling core of SommOS.
// It queues units of work, dispatches them to a bounded pool of concurrent
// executors, enforces per-task timeouts, retries failed work with
// exponential backoff, and reports lifecycle events to registered
// extensions.
//
// The scheduler is a library, not a service. Business-logic callers (batch
// imports, pairing feature extraction, AI provider calls) register handlers
// as ordinary Go functions and submit jobs; nothing is persisted across
// restarts and nothing leaves the process.
//
// # Quick Start
//
//	eng := engine.New(
//	    engine.WithLogger(logger),
//	    engine.WithConfig(sommos.Config{Concurrency: 4}),
//	)
//	engine.Register(eng, job.NewDefinition("inventory.import", importHandler))
//	eng.Start(ctx)
//	jobID, err := eng.Submit(ctx, "inventory.import", payload, job.WithPriority(5))
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package sommos
