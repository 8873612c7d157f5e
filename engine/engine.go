package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/backoff"
	"github.com/Thijssvd/SommOS-sub001/dlq"
	"github.com/Thijssvd/SommOS-sub001/ext"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
	"github.com/Thijssvd/SommOS-sub001/metrics"
	"github.com/Thijssvd/SommOS-sub001/middleware"
	"github.com/Thijssvd/SommOS-sub001/queue"
	"github.com/Thijssvd/SommOS-sub001/worker"
)

// Engine schedules, executes, retries, and reports on jobs. Create one
// with New, register handlers, then Start it. All methods are safe for
// concurrent use.
type Engine struct {
	cfg        sommos.Config
	logger     *slog.Logger
	registry   *job.Registry
	extensions *ext.Registry
	strategy   backoff.Strategy
	collector  *metrics.Collector
	deadJobs   *dlq.Service

	pool    *worker.Pool
	queue   *queue.Queue
	limiter *queue.Limiter

	// Coordinator-owned state. Touched only by the run goroutine.
	jobs        map[string]*job.Job
	inflight    map[string]*flight
	delayTimers map[string]*time.Timer
	waiters     map[string][]chan *job.Job
	wakeArmed   bool

	submitCh chan submitMsg
	cancelCh chan cancelMsg
	statusCh chan statusMsg
	awaitCh  chan awaitMsg
	timerCh  chan timerMsg
	stopCh   chan stopMsg
	done     chan struct{}

	running atomic.Bool
	stopped atomic.Bool
}

// flight tracks one in-flight task attempt. The entry is removed when
// the first terminal signal for the attempt arrives (result, timeout, or
// shutdown); later signals for the same task are dropped.
type flight struct {
	task     *job.Task
	workerID id.WorkerID
	timer    *time.Timer
	cancel   context.CancelFunc
	started  time.Time
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg            sommos.Config
	logger         *slog.Logger
	strategy       backoff.Strategy
	extensions     []ext.Extension
	mws            []middleware.Middleware
	limits         []queue.Config
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithConfig replaces the default configuration. Zero-valued fields keep
// their defaults.
func WithConfig(cfg sommos.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackoff replaces the retry delay strategy. The default is
// exponential doubling from Config.RetryBaseDelay capped at
// Config.RetryMaxDelay.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, e) }
}

// WithMiddleware appends task middleware after the built-in chain
// (recover, tracing, metrics, logging).
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.mws = append(o.mws, mws...) }
}

// WithTypeLimits installs per-type concurrency and rate limits.
func WithTypeLimits(limits ...queue.Config) Option {
	return func(o *options) { o.limits = append(o.limits, limits...) }
}

// WithTracerProvider sets the tracer provider for task spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for task instruments.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// New creates an Engine. Call Start before submitting jobs.
func New(opts ...Option) *Engine {
	o := &options{cfg: sommos.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	cfg := normalize(o.cfg)

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "engine"))

	strategy := o.strategy
	if strategy == nil {
		strategy = backoff.NewExponential(cfg.RetryBaseDelay, cfg.RetryMaxDelay)
	}

	registry := job.NewRegistry()
	extensions := ext.NewRegistry(logger)
	for _, e := range o.extensions {
		extensions.Register(e)
	}

	mws := []middleware.Middleware{middleware.Recover(logger)}
	if o.tracerProvider != nil {
		mws = append(mws, middleware.TracingWithTracer(o.tracerProvider.Tracer("github.com/Thijssvd/SommOS-sub001")))
	} else {
		mws = append(mws, middleware.Tracing())
	}
	if o.meterProvider != nil {
		mws = append(mws, middleware.MetricsWithMeter(o.meterProvider.Meter("github.com/Thijssvd/SommOS-sub001")))
	} else {
		mws = append(mws, middleware.Metrics())
	}
	mws = append(mws, middleware.Logging(logger))
	mws = append(mws, o.mws...)

	var limiter *queue.Limiter
	if len(o.limits) > 0 {
		limiter = queue.NewLimiter(o.limits...)
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		extensions: extensions,
		strategy:   strategy,
		collector:  metrics.NewCollector(cfg.MetricsWindow),
		deadJobs:   dlq.NewService(),
		queue:      queue.New(cfg.QueueCapacity),
		limiter:    limiter,

		jobs:        make(map[string]*job.Job),
		inflight:    make(map[string]*flight),
		delayTimers: make(map[string]*time.Timer),
		waiters:     make(map[string][]chan *job.Job),

		submitCh: make(chan submitMsg),
		cancelCh: make(chan cancelMsg),
		statusCh: make(chan statusMsg),
		awaitCh:  make(chan awaitMsg),
		timerCh:  make(chan timerMsg, 16),
		stopCh:   make(chan stopMsg),
		done:     make(chan struct{}),
	}
	e.pool = worker.NewPool(cfg.Concurrency, registry, extensions, logger,
		worker.WithMiddleware(mws...))
	return e
}

func normalize(cfg sommos.Config) sommos.Config {
	def := sommos.DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = def.DefaultMaxAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = def.RetryMaxDelay
	}
	if cfg.MetricsWindow <= 0 {
		cfg.MetricsWindow = def.MetricsWindow
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.LimiterRetryInterval <= 0 {
		cfg.LimiterRetryInterval = def.LimiterRetryInterval
	}
	return cfg
}

// RegisterHandler binds a handler to a job type. Registering the same
// type again replaces the handler; queued jobs of that type pick up the
// new handler on their next attempt.
func (e *Engine) RegisterHandler(jobType string, h job.HandlerFunc) {
	e.registry.Register(jobType, h)
	e.logger.Info("handler registered", slog.String("job_type", jobType))
}

// Register binds a typed job definition to the engine's registry.
func Register[T any](e *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(e.registry, def)
	e.logger.Info("handler registered", slog.String("job_type", def.Name))
}

// Start launches the executor pool and the coordinator goroutine.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := e.pool.Start(ctx); err != nil {
		return fmt.Errorf("start pool: %w", err)
	}
	go e.run()
	e.logger.Info("engine started",
		slog.Int("concurrency", e.cfg.Concurrency),
		slog.Int("queue_capacity", e.cfg.QueueCapacity))
	return nil
}

// Stop drains in-flight work and shuts the engine down. In-flight tasks
// get until ctx's deadline (or Config.ShutdownTimeout if ctx has none)
// to finish; stragglers are cancelled and abandoned. Queued jobs that
// never started are left unexecuted.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.Load() {
		return nil
	}
	if !e.stopped.CompareAndSwap(false, true) {
		<-e.done
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}
	select {
	case e.stopCh <- stopMsg{ctx: ctx}:
	case <-e.done:
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		<-e.done
		return ctx.Err()
	}
}

// Submit enqueues a job and returns its assigned ID. The job is rejected
// with sommos.ErrQueueFull if the queue is at capacity, and with
// sommos.ErrEngineStopped if the engine is not running.
func (e *Engine) Submit(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (id.JobID, error) {
	if jobType == "" {
		return id.ID{}, fmt.Errorf("submit: empty job type")
	}
	if !e.running.Load() {
		return id.ID{}, sommos.ErrEngineStopped
	}
	o := job.Options{
		Timeout:     e.cfg.DefaultTimeout,
		MaxAttempts: e.cfg.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Timeout <= 0 {
		o.Timeout = e.cfg.DefaultTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = e.cfg.DefaultMaxAttempts
	}

	j := &job.Job{
		Entity:      sommos.NewEntity(),
		ID:          id.NewJobID(),
		Type:        jobType,
		Payload:     append([]byte(nil), payload...),
		Priority:    o.Priority,
		MaxAttempts: o.MaxAttempts,
		Timeout:     o.Timeout,
		Status:      job.StatusQueued,
	}
	if o.Delay > 0 {
		j.NextRunAt = time.Now().UTC().Add(o.Delay)
	}

	m := submitMsg{j: j, reply: make(chan error, 1)}
	select {
	case e.submitCh <- m:
	case <-e.done:
		return id.ID{}, sommos.ErrEngineStopped
	case <-ctx.Done():
		return id.ID{}, ctx.Err()
	}
	select {
	case err := <-m.reply:
		if err != nil {
			return id.ID{}, err
		}
		return j.ID, nil
	case <-ctx.Done():
		return id.ID{}, ctx.Err()
	}
}

// Enqueue marshals payload as JSON and submits it under jobType.
func Enqueue[T any](ctx context.Context, e *Engine, jobType string, payload T, opts ...job.Option) (id.JobID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return id.ID{}, fmt.Errorf("enqueue %s: marshal payload: %w", jobType, err)
	}
	return e.Submit(ctx, jobType, data, opts...)
}

// Status returns a snapshot of the job. The returned Job is a copy;
// mutating it has no effect on the engine.
func (e *Engine) Status(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	if !e.running.Load() {
		return nil, sommos.ErrEngineStopped
	}
	m := statusMsg{jobID: jobID, reply: make(chan statusReply, 1)}
	select {
	case e.statusCh <- m:
	case <-e.done:
		return nil, sommos.ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-m.reply:
		return r.j, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel cancels a job. A queued job is removed before it ever runs. A
// running job has its context cancelled and its outcome discarded; a
// handler that ignores cancellation runs to completion but cannot alter
// the cancelled state. Terminal jobs return sommos.ErrJobFinished.
func (e *Engine) Cancel(ctx context.Context, jobID id.JobID) error {
	if !e.running.Load() {
		return sommos.ErrEngineStopped
	}
	m := cancelMsg{jobID: jobID, reply: make(chan error, 1)}
	select {
	case e.cancelCh <- m:
	case <-e.done:
		return sommos.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-m.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until the job reaches a terminal state and returns its
// final snapshot, or until ctx is done.
func (e *Engine) Await(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	if !e.running.Load() {
		return nil, sommos.ErrEngineStopped
	}
	m := awaitMsg{
		jobID:  jobID,
		notify: make(chan *job.Job, 1),
		reply:  make(chan error, 1),
	}
	select {
	case e.awaitCh <- m:
	case <-e.done:
		return nil, sommos.ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case err := <-m.reply:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case j := <-m.notify:
		return j, nil
	case <-e.done:
		return nil, sommos.ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Metrics returns a point-in-time snapshot of scheduler metrics.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.collector.Snapshot()
}

// DLQ exposes the dead letter queue for inspection and replay.
func (e *Engine) DLQ() *dlq.Service { return e.deadJobs }

// ReplayDead resubmits a dead-lettered job as a fresh job with a full
// attempt budget.
func (e *Engine) ReplayDead(ctx context.Context, entryID id.DLQID) (id.JobID, error) {
	return e.deadJobs.Replay(ctx, e, entryID)
}

// Extensions exposes the lifecycle extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Config returns the engine's effective configuration.
func (e *Engine) Config() sommos.Config { return e.cfg }

var _ dlq.Resubmitter = (*Engine)(nil)
