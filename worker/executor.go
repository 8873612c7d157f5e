// Package worker provides the task execution engine — executors that run
// one task at a time through the middleware chain, and a fixed-size Pool
// that replaces dead executors to keep its configured size.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
	"github.com/Thijssvd/SommOS-sub001/middleware"
)

// assignment pairs a task with the context the engine armed for it.
// The context carries the job metadata and the task's deadline.
type assignment struct {
	ctx  context.Context
	task *job.Task
}

// Executor is a long-lived execution context running one task at a time.
// It receives assignments on its task channel and posts a Result for
// each. Handler resolution happens here, at execution time, so handlers
// registered after submission are still found.
type Executor struct {
	id       id.WorkerID
	registry *job.Registry
	mw       middleware.Middleware
	logger   *slog.Logger

	tasks   chan assignment
	results chan<- Result
	exits   chan<- Exit

	// quit stops the executor after its current task. The pool closes
	// it on shutdown and when detaching a recycled executor.
	quit chan struct{}

	// poolStop guards channel sends during forced shutdown.
	poolStop <-chan struct{}

	wg *sync.WaitGroup
}

func newExecutor(
	workerID id.WorkerID,
	registry *job.Registry,
	mw middleware.Middleware,
	logger *slog.Logger,
	results chan<- Result,
	exits chan<- Exit,
	poolStop <-chan struct{},
	wg *sync.WaitGroup,
) *Executor {
	return &Executor{
		id:       workerID,
		registry: registry,
		mw:       mw,
		logger:   logger,
		tasks:    make(chan assignment, 1),
		results:  results,
		exits:    exits,
		quit:     make(chan struct{}),
		poolStop: poolStop,
		wg:       wg,
	}
}

// ID returns the executor's unique worker identifier.
func (e *Executor) ID() id.WorkerID { return e.id }

// run is the executor goroutine. It exits on quit, or after a crash has
// been reported to the pool.
func (e *Executor) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.quit:
			return
		case a := <-e.tasks:
			if crashed := e.execute(a); crashed {
				e.notifyExit()
				return
			}
		}
	}
}

// execute runs one task and posts its Result. The returned flag is true
// when a panic escaped the middleware chain, which kills this executor.
func (e *Executor) execute(a assignment) (crashed bool) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			crashed = true
			e.logger.Error("executor crashed",
				slog.String("worker_id", e.id.String()),
				slog.String("task_id", a.task.ID.String()),
				slog.Any("panic", r),
			)
			e.post(Result{
				TaskID:   a.task.ID,
				JobID:    a.task.JobID,
				WorkerID: e.id,
				Err:      fmt.Errorf("%w: %v", sommos.ErrWorkerLost, r),
				Code:     sommos.CodeWorkerLost,
				Elapsed:  time.Since(start),
			})
		}
	}()

	handler, ok := e.registry.Get(a.task.Type)
	if !ok {
		e.post(Result{
			TaskID:   a.task.ID,
			JobID:    a.task.JobID,
			WorkerID: e.id,
			Err:      fmt.Errorf("%w: job type %q", sommos.ErrNoHandler, a.task.Type),
			Code:     sommos.CodeHandlerNotFound,
			Elapsed:  time.Since(start),
		})
		return false
	}

	out, err := e.mw(a.ctx, a.task, func(ctx context.Context) ([]byte, error) {
		return handler(ctx, a.task.Payload)
	})

	res := Result{
		TaskID:   a.task.ID,
		JobID:    a.task.JobID,
		WorkerID: e.id,
		Output:   out,
		Elapsed:  time.Since(start),
	}
	if err != nil {
		res.Err = err
		res.Code = sommos.CodeHandlerThrew
		if errors.Is(err, context.DeadlineExceeded) {
			res.Code = sommos.CodeTaskTimeout
		}
	}

	e.post(res)
	return false
}

// post delivers a result without blocking past shutdown. A detached
// (recycled) executor's late result is still sent; the engine drops it
// because the task is no longer in flight.
func (e *Executor) post(r Result) {
	select {
	case e.results <- r:
	case <-e.poolStop:
	}
}

func (e *Executor) notifyExit() {
	select {
	case e.exits <- Exit{WorkerID: e.id, Cause: sommos.ErrWorkerLost}:
	case <-e.poolStop:
	}
}
