// Package observability provides an extension that mirrors scheduler
// lifecycle events into OpenTelemetry metrics.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Thijssvd/SommOS-sub001/ext"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/Thijssvd/SommOS-sub001/observability"

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.JobQueued     = (*MetricsExtension)(nil)
	_ ext.JobCompleted  = (*MetricsExtension)(nil)
	_ ext.JobFailed     = (*MetricsExtension)(nil)
	_ ext.JobRetrying   = (*MetricsExtension)(nil)
	_ ext.JobCancelled  = (*MetricsExtension)(nil)
	_ ext.JobDLQ        = (*MetricsExtension)(nil)
	_ ext.WorkerCreated = (*MetricsExtension)(nil)
	_ ext.WorkerExited  = (*MetricsExtension)(nil)
	_ ext.QueueOverflow = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters via OpenTelemetry.
// Register it as an engine extension to track submission rates,
// completion and failure counts, retries, cancellations, DLQ entries,
// pool churn, and queue overflows. If no MeterProvider is configured,
// the instruments are noops.
type MetricsExtension struct {
	jobQueued     metric.Int64Counter
	jobCompleted  metric.Int64Counter
	jobFailed     metric.Int64Counter
	jobRetried    metric.Int64Counter
	jobCancelled  metric.Int64Counter
	jobDLQ        metric.Int64Counter
	workerCreated metric.Int64Counter
	workerExited  metric.Int64Counter
	queueOverflow metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Use this variant to inject a specific MeterProvider
// for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}

	// On instrument creation errors the OTel API returns noops, so the
	// extension degrades gracefully.
	m.jobQueued, _ = meter.Int64Counter("sommos.jobs.queued",
		metric.WithDescription("Jobs accepted for scheduling"))
	m.jobCompleted, _ = meter.Int64Counter("sommos.jobs.completed",
		metric.WithDescription("Jobs completed successfully"))
	m.jobFailed, _ = meter.Int64Counter("sommos.jobs.failed",
		metric.WithDescription("Jobs failed terminally"))
	m.jobRetried, _ = meter.Int64Counter("sommos.jobs.retried",
		metric.WithDescription("Job retry re-enqueues"))
	m.jobCancelled, _ = meter.Int64Counter("sommos.jobs.cancelled",
		metric.WithDescription("Jobs cancelled"))
	m.jobDLQ, _ = meter.Int64Counter("sommos.jobs.dead_lettered",
		metric.WithDescription("Jobs moved to the dead letter queue"))
	m.workerCreated, _ = meter.Int64Counter("sommos.workers.created",
		metric.WithDescription("Executors spawned"))
	m.workerExited, _ = meter.Int64Counter("sommos.workers.exited",
		metric.WithDescription("Executors that crashed or were recycled"))
	m.queueOverflow, _ = meter.Int64Counter("sommos.queue.overflow",
		metric.WithDescription("Submissions rejected at queue capacity"))

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobQueued implements ext.JobQueued.
func (m *MetricsExtension) OnJobQueued(ctx context.Context, j *job.Job) error {
	m.jobQueued.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.jobCompleted.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.jobFailed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	m.jobRetried.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	m.jobCancelled.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobDLQ implements ext.JobDLQ.
func (m *MetricsExtension) OnJobDLQ(ctx context.Context, j *job.Job, _ error) error {
	m.jobDLQ.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnWorkerCreated implements ext.WorkerCreated.
func (m *MetricsExtension) OnWorkerCreated(ctx context.Context, _ id.WorkerID) error {
	m.workerCreated.Add(ctx, 1)
	return nil
}

// OnWorkerExited implements ext.WorkerExited.
func (m *MetricsExtension) OnWorkerExited(ctx context.Context, _ id.WorkerID, _ error) error {
	m.workerExited.Add(ctx, 1)
	return nil
}

// OnQueueOverflow implements ext.QueueOverflow.
func (m *MetricsExtension) OnQueueOverflow(ctx context.Context, j *job.Job) error {
	m.queueOverflow.Add(ctx, 1, typeAttr(j))
	return nil
}

func typeAttr(j *job.Job) metric.AddOption {
	return metric.WithAttributes(attribute.String("job_type", j.Type))
}
