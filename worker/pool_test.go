package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/ext"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
	"github.com/Thijssvd/SommOS-sub001/middleware"
	"github.com/Thijssvd/SommOS-sub001/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestPool(t *testing.T, size int, opts ...worker.PoolOption) (*worker.Pool, *job.Registry) {
	t.Helper()
	registry := job.NewRegistry()
	logger := testLogger()
	p := worker.NewPool(size, registry, ext.NewRegistry(logger), logger, opts...)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})
	return p, registry
}

func newPoolTask(jobType string) *job.Task {
	return &job.Task{
		ID:      id.NewTaskID(),
		JobID:   id.NewJobID(),
		Type:    jobType,
		Payload: []byte("payload"),
		Attempt: 1,
	}
}

func awaitResult(t *testing.T, p *worker.Pool) worker.Result {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return worker.Result{}
	}
}

func TestPool_ExecutesTask(t *testing.T) {
	p, registry := newTestPool(t, 2)

	registry.Register("echo", func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})

	wid, ok := p.AcquireIdle()
	if !ok {
		t.Fatal("AcquireIdle = !ok on a fresh pool")
	}
	task := newPoolTask("echo")
	if err := p.Submit(context.Background(), wid, task); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r := awaitResult(t, p)
	if r.TaskID.String() != task.ID.String() {
		t.Errorf("result task = %s, want %s", r.TaskID, task.ID)
	}
	if r.WorkerID.String() != wid.String() {
		t.Errorf("result worker = %s, want %s", r.WorkerID, wid)
	}
	if r.Err != nil {
		t.Errorf("result err = %v, want nil", r.Err)
	}
	if string(r.Output) != "payload" {
		t.Errorf("output = %q, want payload", r.Output)
	}
}

func TestPool_HandlerNotFound(t *testing.T) {
	p, _ := newTestPool(t, 1)

	wid, _ := p.AcquireIdle()
	if err := p.Submit(context.Background(), wid, newPoolTask("missing")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r := awaitResult(t, p)
	if !errors.Is(r.Err, sommos.ErrNoHandler) {
		t.Errorf("err = %v, want wrapped ErrNoHandler", r.Err)
	}
	if r.Code != sommos.CodeHandlerNotFound {
		t.Errorf("code = %s, want %s", r.Code, sommos.CodeHandlerNotFound)
	}
}

func TestPool_HandlerError(t *testing.T) {
	p, registry := newTestPool(t, 1)

	boom := errors.New("decant failed")
	registry.Register("failing", func(_ context.Context, _ []byte) ([]byte, error) {
		return nil, boom
	})

	wid, _ := p.AcquireIdle()
	_ = p.Submit(context.Background(), wid, newPoolTask("failing"))

	r := awaitResult(t, p)
	if !errors.Is(r.Err, boom) {
		t.Errorf("err = %v, want %v", r.Err, boom)
	}
	if r.Code != sommos.CodeHandlerThrew {
		t.Errorf("code = %s, want %s", r.Code, sommos.CodeHandlerThrew)
	}
}

func TestPool_AcquireExhaustionAndRelease(t *testing.T) {
	p, _ := newTestPool(t, 1)

	wid, ok := p.AcquireIdle()
	if !ok {
		t.Fatal("first AcquireIdle failed")
	}
	if _, ok := p.AcquireIdle(); ok {
		t.Fatal("second AcquireIdle succeeded on a pool of 1")
	}
	if p.Busy() != 1 {
		t.Errorf("Busy = %d, want 1", p.Busy())
	}

	p.Release(wid)
	if p.Busy() != 0 {
		t.Errorf("Busy after Release = %d, want 0", p.Busy())
	}
	if _, ok := p.AcquireIdle(); !ok {
		t.Error("AcquireIdle after Release failed")
	}
}

func TestPool_CrashReplacesExecutor(t *testing.T) {
	// Explicit empty chain: no recover middleware, so the panic escapes
	// and kills the executor goroutine.
	p, registry := newTestPool(t, 1, worker.WithMiddleware())

	registry.Register("crasher", func(_ context.Context, _ []byte) ([]byte, error) {
		panic("all corks popped")
	})
	registry.Register("echo", func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})

	wid, _ := p.AcquireIdle()
	_ = p.Submit(context.Background(), wid, newPoolTask("crasher"))

	r := awaitResult(t, p)
	if r.Code != sommos.CodeWorkerLost {
		t.Fatalf("code = %s, want %s", r.Code, sommos.CodeWorkerLost)
	}
	if !errors.Is(r.Err, sommos.ErrWorkerLost) {
		t.Errorf("err = %v, want wrapped ErrWorkerLost", r.Err)
	}

	select {
	case x := <-p.Exits():
		if x.WorkerID.String() != wid.String() {
			t.Errorf("exit worker = %s, want %s", x.WorkerID, wid)
		}
		p.HandleExit(context.Background(), x)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit")
	}

	if p.Size() != 1 {
		t.Errorf("Size = %d, want 1", p.Size())
	}

	// The replacement executor must be functional.
	wid2, ok := p.AcquireIdle()
	if !ok {
		t.Fatal("AcquireIdle after self-heal failed")
	}
	if wid2.String() == wid.String() {
		t.Error("replacement has the same worker ID as the crashed executor")
	}
	task := newPoolTask("echo")
	_ = p.Submit(context.Background(), wid2, task)
	r = awaitResult(t, p)
	if r.Err != nil || string(r.Output) != "payload" {
		t.Errorf("replacement result = (%q, %v), want (payload, nil)", r.Output, r.Err)
	}
}

func TestPool_RecycleDetachesStuckExecutor(t *testing.T) {
	p, registry := newTestPool(t, 1)

	release := make(chan struct{})
	registry.Register("stuck", func(_ context.Context, _ []byte) ([]byte, error) {
		<-release
		return nil, nil
	})

	wid, _ := p.AcquireIdle()
	_ = p.Submit(context.Background(), wid, newPoolTask("stuck"))

	// The handler ignores its context; detach the executor and verify a
	// replacement takes over immediately.
	p.Recycle(context.Background(), wid, sommos.ErrTaskTimeout)

	wid2, ok := p.AcquireIdle()
	if !ok {
		t.Fatal("AcquireIdle after Recycle failed")
	}
	if wid2.String() == wid.String() {
		t.Error("recycled worker ID reused")
	}

	registry.Register("echo", func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})
	task := newPoolTask("echo")
	_ = p.Submit(context.Background(), wid2, task)

	r := awaitResult(t, p)
	if r.TaskID.String() != task.ID.String() {
		t.Errorf("result task = %s, want %s (replacement executor)", r.TaskID, task.ID)
	}

	// Unblock the detached goroutine so Stop can finish cleanly.
	close(release)
}

func TestPool_SubmitUnknownWorker(t *testing.T) {
	p, _ := newTestPool(t, 1)

	err := p.Submit(context.Background(), id.NewWorkerID(), newPoolTask("any"))
	if !errors.Is(err, sommos.ErrWorkerLost) {
		t.Errorf("Submit to unknown worker = %v, want wrapped ErrWorkerLost", err)
	}
}

func TestPool_StopWaitsForInflight(t *testing.T) {
	registry := job.NewRegistry()
	logger := testLogger()
	p := worker.NewPool(1, registry, ext.NewRegistry(logger), logger,
		worker.WithMiddleware(middleware.Recover(logger)))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	registry.Register("slow", func(_ context.Context, _ []byte) ([]byte, error) {
		time.Sleep(50 * time.Millisecond)
		close(done)
		return nil, nil
	})

	wid, _ := p.AcquireIdle()
	_ = p.Submit(context.Background(), wid, newPoolTask("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-done:
	default:
		t.Error("Stop returned before the in-flight task finished")
	}
}
