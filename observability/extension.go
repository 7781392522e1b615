package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.JobEnqueued   = (*MetricsExtension)(nil)
	_ ext.JobCompleted  = (*MetricsExtension)(nil)
	_ ext.JobRetrying   = (*MetricsExtension)(nil)
	_ ext.JobDead       = (*MetricsExtension)(nil)
	_ ext.JobRetried    = (*MetricsExtension)(nil)
	_ ext.JobsReclaimed = (*MetricsExtension)(nil)
)

// meterName is the instrumentation scope for lifecycle counters.
const meterName = "github.com/KarthikHK-01/queuectl/observability"

// MetricsExtension records queue-wide lifecycle counters through an
// OpenTelemetry meter. Register it with the engine to track enqueue
// rates, completions, retries, dead-letters, DLQ retries, and reclaims.
type MetricsExtension struct {
	JobEnqueued   metric.Int64Counter
	JobCompleted  metric.Int64Counter
	JobRetrying   metric.Int64Counter
	JobDead       metric.Int64Counter
	JobRetried    metric.Int64Counter
	JobsReclaimed metric.Int64Counter
	JobDuration   metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension on the global MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		// The API returns a noop instrument alongside any error.
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{job}"))
		return c
	}
	duration, _ := meter.Float64Histogram("queuectl.job.completed.duration",
		metric.WithDescription("Execution time of successful attempts"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{
		JobEnqueued:   counter("queuectl.job.enqueued", "Jobs enqueued"),
		JobCompleted:  counter("queuectl.job.completed", "Jobs completed"),
		JobRetrying:   counter("queuectl.job.retrying", "Failed attempts scheduled for retry"),
		JobDead:       counter("queuectl.job.dead", "Jobs moved to the dead letter queue"),
		JobRetried:    counter("queuectl.job.dlq_retried", "Dead jobs requeued by an operator"),
		JobsReclaimed: counter("queuectl.job.reclaimed", "Stale processing jobs returned to pending"),
		JobDuration:   duration,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, _ *job.Job) error {
	m.JobEnqueued.Add(ctx, 1)
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, _ *job.Job, elapsed time.Duration) error {
	m.JobCompleted.Add(ctx, 1)
	m.JobDuration.Record(ctx, elapsed.Seconds())
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, _ *job.Job, _ error, _ time.Time) error {
	m.JobRetrying.Add(ctx, 1)
	return nil
}

// OnJobDead implements ext.JobDead.
func (m *MetricsExtension) OnJobDead(ctx context.Context, _ *job.Job, _ error) error {
	m.JobDead.Add(ctx, 1)
	return nil
}

// OnJobRetried implements ext.JobRetried.
func (m *MetricsExtension) OnJobRetried(ctx context.Context, _ *job.Job) error {
	m.JobRetried.Add(ctx, 1)
	return nil
}

// OnJobsReclaimed implements ext.JobsReclaimed.
func (m *MetricsExtension) OnJobsReclaimed(ctx context.Context, count int64) error {
	m.JobsReclaimed.Add(ctx, count)
	return nil
}
