package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
	"github.com/Thijssvd/SommOS-sub001/worker"
)

type submitMsg struct {
	j     *job.Job
	reply chan error
}

type cancelMsg struct {
	jobID id.JobID
	reply chan error
}

type statusMsg struct {
	jobID id.JobID
	reply chan statusReply
}

type statusReply struct {
	j   *job.Job
	err error
}

type awaitMsg struct {
	jobID  id.JobID
	notify chan *job.Job
	reply  chan error
}

type stopMsg struct {
	ctx context.Context
}

type timerKind int

const (
	// timerDelay releases a job held for an initial delay or a retry
	// backoff into the queue.
	timerDelay timerKind = iota
	// timerTimeout fires when an in-flight attempt exceeds its timeout.
	timerTimeout
	// timerWake re-runs dispatch after a rate-limited dequeue.
	timerWake
)

type timerMsg struct {
	kind   timerKind
	jobID  id.JobID
	taskID id.TaskID
}

// run is the coordinator goroutine. It is the only goroutine that
// touches e.jobs, e.inflight, e.queue, and pool membership.
func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case m := <-e.submitCh:
			e.handleSubmit(m)
			e.dispatch()
		case m := <-e.cancelCh:
			e.handleCancel(m)
			e.dispatch()
		case m := <-e.statusCh:
			e.handleStatus(m)
		case m := <-e.awaitCh:
			e.handleAwait(m)
		case r := <-e.pool.Results():
			e.handleResult(r)
			e.dispatch()
		case x := <-e.pool.Exits():
			e.pool.HandleExit(context.Background(), x)
			e.dispatch()
		case t := <-e.timerCh:
			e.handleTimer(t)
			e.dispatch()
		case m := <-e.stopCh:
			e.shutdown(m.ctx)
			return
		}
	}
}

// postTimer delivers a timer message to the loop. Senders are
// time.AfterFunc goroutines; once the engine is done they drop the
// message instead of blocking forever.
func (e *Engine) postTimer(m timerMsg) {
	select {
	case e.timerCh <- m:
	case <-e.done:
	}
}

func (e *Engine) handleSubmit(m submitMsg) {
	j := m.j
	now := time.Now().UTC()

	if !j.NextRunAt.IsZero() && j.NextRunAt.After(now) {
		// Held back; enters the queue when the delay timer fires.
		e.jobs[j.ID.String()] = j
		e.armDelay(j, j.NextRunAt.Sub(now))
	} else {
		if err := e.queue.Push(j.ID, j.Priority); err != nil {
			e.extensions.EmitQueueOverflow(context.Background(), j)
			e.logger.Warn("submission rejected",
				slog.String("job_id", j.ID.String()),
				slog.String("job_type", j.Type),
				slog.Int("queue_depth", e.queue.Len()))
			m.reply <- err
			return
		}
		e.jobs[j.ID.String()] = j
	}

	m.reply <- nil
	e.collector.JobSubmitted()
	e.extensions.EmitJobQueued(context.Background(), j)
	e.logger.Debug("job queued",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("priority", j.Priority))
}

func (e *Engine) armDelay(j *job.Job, d time.Duration) {
	jobID := j.ID
	e.delayTimers[jobID.String()] = time.AfterFunc(d, func() {
		e.postTimer(timerMsg{kind: timerDelay, jobID: jobID})
	})
}

// dispatch pairs queued jobs with idle executors until one side runs
// out, then refreshes the gauges.
func (e *Engine) dispatch() {
	for e.queue.Len() > 0 {
		workerID, ok := e.pool.AcquireIdle()
		if !ok {
			break
		}
		entry, ok := e.queue.Pop()
		if !ok {
			e.pool.Release(workerID)
			break
		}
		j := e.jobs[entry.JobID.String()]
		if j == nil || j.Status != job.StatusQueued {
			// Stale entry; the job was cancelled out from under it.
			e.pool.Release(workerID)
			continue
		}
		if e.limiter != nil && !e.limiter.Acquire(j.Type) {
			// Over the type's limit. Put the entry back with its original
			// arrival order and try again shortly.
			e.pool.Release(workerID)
			e.queue.Restore(entry)
			e.armWake()
			break
		}
		e.startAttempt(j, workerID)
	}
	e.syncGauges()
}

func (e *Engine) armWake() {
	if e.wakeArmed {
		return
	}
	e.wakeArmed = true
	time.AfterFunc(e.cfg.LimiterRetryInterval, func() {
		e.postTimer(timerMsg{kind: timerWake})
	})
}

func (e *Engine) startAttempt(j *job.Job, workerID id.WorkerID) {
	j.AttemptCount++
	j.Status = job.StatusRunning
	now := time.Now().UTC()
	if j.StartedAt == nil {
		t := now
		j.StartedAt = &t
	}
	j.Touch()

	t := job.NewTask(j, j.AttemptCount)
	meta := sommos.JobMeta{
		JobID:   j.ID,
		Type:    j.Type,
		Attempt: t.Attempt,
		Timeout: j.Timeout,
	}
	ctx, cancel := context.WithTimeout(sommos.WithJobMeta(context.Background(), meta), j.Timeout)

	fl := &flight{
		task:     t,
		workerID: workerID,
		cancel:   cancel,
		started:  time.Now(),
	}
	taskID := t.ID
	fl.timer = time.AfterFunc(j.Timeout, func() {
		e.postTimer(timerMsg{kind: timerTimeout, jobID: j.ID, taskID: taskID})
	})
	e.inflight[t.ID.String()] = fl

	if err := e.pool.Submit(ctx, workerID, t); err != nil {
		// The slot vanished between acquire and submit. Treat it like a
		// lost worker so the attempt is accounted for.
		fl.timer.Stop()
		cancel()
		delete(e.inflight, t.ID.String())
		if e.limiter != nil {
			e.limiter.Release(j.Type)
		}
		e.recordAttempt(j, fl, sommos.CodeWorkerLost, err)
		e.failAttempt(j, fmt.Errorf("%w: %v", sommos.ErrWorkerLost, err), sommos.CodeWorkerLost)
		return
	}

	e.extensions.EmitJobStarted(context.Background(), j)
	e.logger.Debug("task dispatched",
		slog.String("job_id", j.ID.String()),
		slog.String("task_id", t.ID.String()),
		slog.String("worker_id", workerID.String()),
		slog.Int("attempt", t.Attempt),
		slog.Int("max_attempts", j.MaxAttempts))
}

func (e *Engine) handleResult(r worker.Result) {
	fl, ok := e.inflight[r.TaskID.String()]
	if !ok {
		// The attempt already timed out or shut down; the late outcome
		// is dropped so the job sees exactly one terminal signal.
		return
	}
	delete(e.inflight, r.TaskID.String())
	fl.timer.Stop()
	fl.cancel()

	if r.Code != sommos.CodeWorkerLost {
		// A lost worker's slot is replaced via the exit path instead.
		e.pool.Release(r.WorkerID)
	}

	j := e.jobs[r.JobID.String()]
	if j == nil {
		return
	}
	if e.limiter != nil {
		e.limiter.Release(j.Type)
	}
	e.recordAttempt(j, fl, r.Code, r.Err)

	if j.Status == job.StatusCancelled {
		// Cancelled mid-run; the outcome is discarded.
		return
	}
	if r.Err == nil {
		e.completeJob(j, r)
		return
	}
	e.failAttempt(j, r.Err, r.Code)
}

func (e *Engine) recordAttempt(j *job.Job, fl *flight, code sommos.FailureCode, attemptErr error) {
	rec := job.Attempt{
		Number:    fl.task.Attempt,
		StartedAt: fl.started.UTC(),
		EndedAt:   time.Now().UTC(),
	}
	if attemptErr != nil {
		rec.Code = code
		rec.Error = attemptErr.Error()
	}
	j.Attempts = append(j.Attempts, rec)
	j.Touch()
}

func (e *Engine) completeJob(j *job.Job, r worker.Result) {
	now := time.Now().UTC()
	j.Status = job.StatusCompleted
	j.CompletedAt = &now
	j.Result = r.Output
	j.LastError = ""
	j.Touch()

	e.collector.JobCompleted(r.Elapsed)
	e.extensions.EmitJobCompleted(context.Background(), j, r.Elapsed)
	e.logger.Info("job completed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("attempts", j.AttemptCount),
		slog.Duration("elapsed", r.Elapsed))
	e.notifyWaiters(j)
}

// failAttempt handles a failed attempt: schedule a retry if budget
// remains, otherwise fail the job terminally and dead-letter it.
func (e *Engine) failAttempt(j *job.Job, attemptErr error, code sommos.FailureCode) {
	j.LastError = attemptErr.Error()

	if j.AttemptCount < j.MaxAttempts {
		delay := e.strategy.Delay(j.AttemptCount)
		j.Status = job.StatusQueued
		j.NextRunAt = time.Now().UTC().Add(delay)
		j.Touch()

		e.collector.JobRetried()
		e.extensions.EmitJobRetrying(context.Background(), j, j.AttemptCount, j.NextRunAt)
		e.logger.Info("job scheduled for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("code", string(code)),
			slog.Int("attempt", j.AttemptCount),
			slog.Int("max_attempts", j.MaxAttempts),
			slog.Duration("delay", delay))
		e.armDelay(j, delay)
		return
	}

	now := time.Now().UTC()
	j.Status = job.StatusFailed
	j.FailedAt = &now
	j.Touch()

	e.collector.JobFailed()
	e.deadJobs.Push(j, attemptErr, code)
	e.extensions.EmitJobFailed(context.Background(), j, attemptErr)
	e.extensions.EmitJobDLQ(context.Background(), j, attemptErr)
	e.logger.Warn("job failed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.String("code", string(code)),
		slog.Int("attempts", j.AttemptCount),
		slog.String("error", attemptErr.Error()))
	e.notifyWaiters(j)
}

func (e *Engine) handleTimer(m timerMsg) {
	switch m.kind {
	case timerWake:
		e.wakeArmed = false

	case timerDelay:
		delete(e.delayTimers, m.jobID.String())
		j := e.jobs[m.jobID.String()]
		if j == nil || j.Status != job.StatusQueued {
			return
		}
		if err := e.queue.Push(j.ID, j.Priority); err != nil {
			// No room when the hold expired. The job fails loudly rather
			// than evaporating.
			now := time.Now().UTC()
			j.Status = job.StatusFailed
			j.FailedAt = &now
			j.LastError = err.Error()
			j.Touch()
			e.collector.JobFailed()
			e.deadJobs.Push(j, err, sommos.CodeQueueFull)
			e.extensions.EmitQueueOverflow(context.Background(), j)
			e.extensions.EmitJobFailed(context.Background(), j, err)
			e.extensions.EmitJobDLQ(context.Background(), j, err)
			e.logger.Warn("job dropped from hold, queue full",
				slog.String("job_id", j.ID.String()),
				slog.String("job_type", j.Type))
			e.notifyWaiters(j)
		}

	case timerTimeout:
		fl, ok := e.inflight[m.taskID.String()]
		if !ok {
			return
		}
		delete(e.inflight, m.taskID.String())
		fl.timer.Stop()
		fl.cancel()

		// The executor may be stuck in a handler that ignores its
		// context; detach it and bring up a replacement so capacity is
		// restored immediately. Its eventual result is dropped.
		e.pool.Recycle(context.Background(), fl.workerID, sommos.ErrTaskTimeout)

		j := e.jobs[m.jobID.String()]
		if j == nil {
			return
		}
		if e.limiter != nil {
			e.limiter.Release(j.Type)
		}
		timeoutErr := fmt.Errorf("%w after %s", sommos.ErrTaskTimeout, j.Timeout)
		e.recordAttempt(j, fl, sommos.CodeTaskTimeout, timeoutErr)
		e.logger.Warn("task timed out",
			slog.String("job_id", j.ID.String()),
			slog.String("task_id", m.taskID.String()),
			slog.String("worker_id", fl.workerID.String()),
			slog.Duration("timeout", j.Timeout))
		if j.Status == job.StatusCancelled {
			return
		}
		e.failAttempt(j, timeoutErr, sommos.CodeTaskTimeout)
	}
}

func (e *Engine) handleCancel(m cancelMsg) {
	j := e.jobs[m.jobID.String()]
	if j == nil {
		m.reply <- sommos.ErrJobNotFound
		return
	}

	switch j.Status {
	case job.StatusQueued:
		e.queue.Remove(j.ID)
		if t, ok := e.delayTimers[j.ID.String()]; ok {
			t.Stop()
			delete(e.delayTimers, j.ID.String())
		}
		e.markCancelled(j)
		m.reply <- nil

	case job.StatusRunning:
		// Best effort: cancel the attempt's context and flip the state
		// now. The in-flight entry stays so the eventual result or
		// timeout is absorbed without changing the outcome.
		for _, fl := range e.inflight {
			if fl.task.JobID.String() == j.ID.String() {
				fl.cancel()
				break
			}
		}
		e.markCancelled(j)
		m.reply <- nil

	default:
		m.reply <- sommos.ErrJobFinished
	}
}

func (e *Engine) markCancelled(j *job.Job) {
	now := time.Now().UTC()
	j.Status = job.StatusCancelled
	j.CancelledAt = &now
	j.Touch()

	e.collector.JobCancelled()
	e.extensions.EmitJobCancelled(context.Background(), j)
	e.logger.Info("job cancelled",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type))
	e.notifyWaiters(j)
}

func (e *Engine) handleStatus(m statusMsg) {
	j := e.jobs[m.jobID.String()]
	if j == nil {
		m.reply <- statusReply{err: sommos.ErrJobNotFound}
		return
	}
	m.reply <- statusReply{j: j.Clone()}
}

func (e *Engine) handleAwait(m awaitMsg) {
	j := e.jobs[m.jobID.String()]
	if j == nil {
		m.reply <- sommos.ErrJobNotFound
		return
	}
	m.reply <- nil
	if j.Status.Terminal() {
		m.notify <- j.Clone()
		return
	}
	key := m.jobID.String()
	e.waiters[key] = append(e.waiters[key], m.notify)
}

// notifyWaiters delivers the terminal snapshot to every Await caller.
// Notify channels are buffered so the loop never blocks.
func (e *Engine) notifyWaiters(j *job.Job) {
	key := j.ID.String()
	for _, ch := range e.waiters[key] {
		ch <- j.Clone()
	}
	delete(e.waiters, key)
}

func (e *Engine) syncGauges() {
	e.collector.SetQueueDepth(e.queue.Len())
	e.collector.SetWorkers(e.pool.Busy(), e.pool.Size())
	e.collector.SetActive(len(e.inflight))
}

// shutdown drains in-flight tasks until they finish or ctx expires,
// then stops the pool. Held and queued jobs are simply left behind.
func (e *Engine) shutdown(ctx context.Context) {
	e.logger.Info("engine stopping",
		slog.Int("inflight", len(e.inflight)),
		slog.Int("queued", e.queue.Len()))

	for len(e.inflight) > 0 {
		select {
		case r := <-e.pool.Results():
			e.handleResult(r)
		case x := <-e.pool.Exits():
			e.pool.HandleExit(context.Background(), x)
		case t := <-e.timerCh:
			e.handleTimer(t)
		case <-ctx.Done():
			for _, fl := range e.inflight {
				fl.timer.Stop()
				fl.cancel()
			}
			e.logger.Warn("shutdown deadline hit, abandoning tasks",
				slog.Int("abandoned", len(e.inflight)))
			e.inflight = make(map[string]*flight)
		}
	}

	for _, t := range e.delayTimers {
		t.Stop()
	}
	e.delayTimers = make(map[string]*time.Timer)

	if err := e.pool.Stop(ctx); err != nil {
		e.logger.Warn("pool stop", slog.String("error", err.Error()))
	}
	e.syncGauges()
	e.extensions.EmitShutdown(context.Background())
	e.logger.Info("engine stopped")
}
