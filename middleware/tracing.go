package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Thijssvd/SommOS-sub001/job"
)

// tracerName is the instrumentation scope name for scheduler tracing.
const tracerName = "github.com/Thijssvd/SommOS-sub001"

// Tracing returns middleware that wraps task execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: sommos.job.id, sommos.job.type,
// sommos.task.id, sommos.attempt. On error, the span status is set to
// codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *job.Task, next Handler) ([]byte, error) {
		ctx, span := tracer.Start(ctx, "sommos.task.execute",
			trace.WithAttributes(
				attribute.String("sommos.job.id", t.JobID.String()),
				attribute.String("sommos.job.type", t.Type),
				attribute.String("sommos.task.id", t.ID.String()),
				attribute.Int("sommos.attempt", t.Attempt),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		out, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return out, err
	}
}
