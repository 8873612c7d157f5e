// Package engine is the coordinating core of the scheduler. It owns the
// priority queue, the executor pool, and every job from submission to
// terminal state.
//
// All mutable scheduling state lives on a single coordinator goroutine.
// The public API (Submit, Cancel, Status, Await) talks to that goroutine
// over channels, executors report back over the pool's result and exit
// channels, and timers post wake messages the same way. Because exactly
// one goroutine touches the jobs map, the queue, and pool membership,
// none of it needs locks and every state transition is totally ordered.
package engine
