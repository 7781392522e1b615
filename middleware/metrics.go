package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/KarthikHK-01/queuectl/job"
)

// meterName is the instrumentation scope name for queuectl metrics.
const meterName = "github.com/KarthikHK-01/queuectl"

// Metrics returns middleware that records per-attempt execution metrics
// using the global OTel MeterProvider. Without a configured provider the
// instruments are noops.
//
// Instruments:
//   - queuectl.job.duration (Float64Histogram): execution time in seconds,
//     with attribute status ("ok" or "error")
//   - queuectl.job.executions (Int64Counter): total attempts,
//     with attributes status and retry ("true" after the first attempt)
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API hands back noop instruments.
	duration, _ := meter.Float64Histogram(
		"queuectl.job.duration",
		metric.WithDescription("Duration of command execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"queuectl.job.executions",
		metric.WithDescription("Total number of execution attempts"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		duration.Record(ctx, elapsed, metric.WithAttributes(
			attribute.String("status", status),
		))
		executions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
			attribute.Bool("retry", j.Attempts > 0),
		))

		return err
	}
}
