package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/ext"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
	"github.com/Thijssvd/SommOS-sub001/middleware"
)

// State is the lifecycle state of a pooled executor.
type State string

const (
	StateStarting State = "starting"
	StateIdle     State = "idle"
	StateBusy     State = "busy"
	StateExited   State = "exited"
)

// slot tracks one pooled executor.
type slot struct {
	exec  *Executor
	state State
}

// Pool maintains exactly N live executors. A crashed or recycled
// executor is replaced immediately so the pool never shrinks below its
// configured size.
//
// All Pool methods except channel reads are called only from the
// engine's coordinator goroutine, so pool membership needs no locking.
// Executors communicate back exclusively through the Results and Exits
// channels.
type Pool struct {
	size       int
	registry   *job.Registry
	mw         middleware.Middleware
	extensions *ext.Registry
	logger     *slog.Logger

	slots map[string]*slot
	idle  []id.WorkerID
	busy  int

	results chan Result
	exits   chan Exit
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithMiddleware sets the middleware chain each executor runs tasks
// through. The default chain is just Recover.
func WithMiddleware(mws ...middleware.Middleware) PoolOption {
	return func(p *Pool) { p.mw = middleware.Chain(mws...) }
}

// NewPool creates a pool of size executors.
func NewPool(
	size int,
	registry *job.Registry,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		size:       size,
		registry:   registry,
		extensions: extensions,
		logger:     logger,
		slots:      make(map[string]*slot, size),
		idle:       make([]id.WorkerID, 0, size),
		results:    make(chan Result, size),
		exits:      make(chan Exit, size),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.mw == nil {
		p.mw = middleware.Chain(middleware.Recover(logger))
	}
	return p
}

// Results is the channel executors post task outcomes on.
func (p *Pool) Results() <-chan Result { return p.results }

// Exits is the channel executors announce crashes on.
func (p *Pool) Exits() <-chan Exit { return p.exits }

// Size returns the configured pool size.
func (p *Pool) Size() int { return p.size }

// Busy returns the number of executors currently running a task.
func (p *Pool) Busy() int { return p.busy }

// Start spawns the initial executors.
func (p *Pool) Start(ctx context.Context) error {
	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("executor pool starting", slog.Int("size", p.size))
	for range p.size {
		p.spawn(ctx)
	}
	return nil
}

// spawn creates one executor, registers it idle, and emits
// worker_created.
func (p *Pool) spawn(ctx context.Context) id.WorkerID {
	wid := id.NewWorkerID()
	e := newExecutor(wid, p.registry, p.mw, p.logger, p.results, p.exits, p.stopCh, &p.wg)

	s := &slot{exec: e, state: StateStarting}
	p.slots[wid.String()] = s

	p.wg.Add(1)
	go e.run()

	s.state = StateIdle
	p.idle = append(p.idle, wid)

	p.logger.Debug("executor spawned", slog.String("worker_id", wid.String()))
	p.extensions.EmitWorkerCreated(ctx, wid)
	return wid
}

// AcquireIdle returns an idle executor, marking it busy. Non-blocking;
// the second return value is false when every executor is busy.
func (p *Pool) AcquireIdle() (id.WorkerID, bool) {
	for len(p.idle) > 0 {
		wid := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		s, ok := p.slots[wid.String()]
		if !ok || s.state != StateIdle {
			continue
		}
		s.state = StateBusy
		p.busy++
		return wid, true
	}
	return id.Nil, false
}

// Submit hands a task to a previously acquired executor. The result is
// delivered asynchronously on Results.
func (p *Pool) Submit(ctx context.Context, workerID id.WorkerID, t *job.Task) error {
	s, ok := p.slots[workerID.String()]
	if !ok {
		return fmt.Errorf("worker %s: %w", workerID, sommos.ErrWorkerLost)
	}
	if s.state != StateBusy {
		return fmt.Errorf("worker %s not acquired", workerID)
	}

	// The task channel has room for exactly one assignment and the
	// executor was idle, so this never blocks.
	s.exec.tasks <- assignment{ctx: ctx, task: t}
	return nil
}

// Release returns an executor to the idle set once its task concluded.
// Unknown workers (crashed or recycled since) are ignored.
func (p *Pool) Release(workerID id.WorkerID) {
	s, ok := p.slots[workerID.String()]
	if !ok || s.state != StateBusy {
		return
	}
	s.state = StateIdle
	p.busy--
	p.idle = append(p.idle, workerID)
}

// Recycle detaches an executor whose task cannot be preempted (timeout
// of a non-cooperative handler) and spawns a replacement to restore the
// pool size. The detached goroutine exits after its handler returns;
// its late result is dropped by the engine.
func (p *Pool) Recycle(ctx context.Context, workerID id.WorkerID, cause error) {
	s, ok := p.slots[workerID.String()]
	if !ok {
		return
	}

	close(s.exec.quit)
	if s.state == StateBusy {
		p.busy--
	}
	s.state = StateExited
	delete(p.slots, workerID.String())

	p.logger.Warn("executor recycled",
		slog.String("worker_id", workerID.String()),
		slog.String("cause", cause.Error()),
	)
	p.extensions.EmitWorkerExited(ctx, workerID, cause)
	p.spawn(ctx)
}

// HandleExit replaces an executor that died unexpectedly. Exits from
// executors already recycled are no-ops.
func (p *Pool) HandleExit(ctx context.Context, x Exit) {
	s, ok := p.slots[x.WorkerID.String()]
	if !ok {
		return
	}

	if s.state == StateBusy {
		p.busy--
	}
	s.state = StateExited
	delete(p.slots, x.WorkerID.String())

	p.logger.Error("executor exited unexpectedly",
		slog.String("worker_id", x.WorkerID.String()),
	)
	p.extensions.EmitWorkerExited(ctx, x.WorkerID, x.Cause)
	p.spawn(ctx)
}

// Stop shuts the pool down. Executors finish their current task; if the
// context expires first, remaining goroutines are abandoned (their
// handlers cannot be preempted) and their results discarded.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.running {
		return nil
	}
	p.running = false

	for _, s := range p.slots {
		close(s.exec.quit)
	}
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("executor pool stopped")
	case <-ctx.Done():
		p.logger.Warn("executor pool shutdown timed out, abandoning stuck executors")
	}
	return nil
}
