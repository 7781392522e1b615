package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarthikHK-01/queuectl/job"
)

// tracerName is the instrumentation scope name for queuectl tracing.
const tracerName = "github.com/KarthikHK-01/queuectl"

// Tracing returns middleware that wraps each execution attempt in an
// OpenTelemetry span, using the global TracerProvider.
//
// Span attributes: queuectl.job.id, queuectl.job.command,
// queuectl.job.attempt, queuectl.job.max_retries, queuectl.worker.id.
// On error the span status is set to codes.Error.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "queuectl.job.execute",
			trace.WithAttributes(
				attribute.String("queuectl.job.id", j.ID),
				attribute.String("queuectl.job.command", j.Command),
				attribute.Int("queuectl.job.attempt", j.Attempts+1),
				attribute.Int("queuectl.job.max_retries", j.MaxRetries),
				attribute.String("queuectl.worker.id", j.WorkerID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
