package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/observability"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func newTestJob() *job.Job {
	return &job.Job{ID: id.NewJobID(), Command: "echo hi", MaxRetries: 3}
}

// counterValue returns the summed value of the named counter, or -1 if
// it was never recorded.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: data type %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return -1
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_Hooks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		metric string
		fire   func(e *observability.MetricsExtension) error
		want   int64
	}{
		{"enqueued", "queuectl.job.enqueued", func(e *observability.MetricsExtension) error {
			return e.OnJobEnqueued(ctx, newTestJob())
		}, 1},
		{"completed", "queuectl.job.completed", func(e *observability.MetricsExtension) error {
			return e.OnJobCompleted(ctx, newTestJob(), 100*time.Millisecond)
		}, 1},
		{"retrying", "queuectl.job.retrying", func(e *observability.MetricsExtension) error {
			return e.OnJobRetrying(ctx, newTestJob(), errors.New("exit code 1"), time.Now().Add(time.Minute))
		}, 1},
		{"dead", "queuectl.job.dead", func(e *observability.MetricsExtension) error {
			return e.OnJobDead(ctx, newTestJob(), errors.New("exit code 1"))
		}, 1},
		{"dlq retried", "queuectl.job.dlq_retried", func(e *observability.MetricsExtension) error {
			return e.OnJobRetried(ctx, newTestJob())
		}, 1},
		{"reclaimed", "queuectl.job.reclaimed", func(e *observability.MetricsExtension) error {
			return e.OnJobsReclaimed(ctx, 4)
		}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, reader := newTestExtension()
			if err := tt.fire(e); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := counterValue(t, reader, tt.metric); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.metric, got, tt.want)
			}
		})
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()
	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	j := newTestJob()
	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobCompleted(ctx, j, time.Second)
	reg.EmitJobDead(ctx, j, errors.New("boom"))

	if got := counterValue(t, reader, "queuectl.job.enqueued"); got != 2 {
		t.Errorf("enqueued = %d, want 2", got)
	}
	if got := counterValue(t, reader, "queuectl.job.completed"); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	if got := counterValue(t, reader, "queuectl.job.dead"); got != 1 {
		t.Errorf("dead = %d, want 1", got)
	}
	if got := counterValue(t, reader, "queuectl.job.retrying"); got != -1 {
		t.Errorf("retrying = %d, want it unrecorded", got)
	}
}
