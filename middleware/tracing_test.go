package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
	mw "github.com/KarthikHK-01/queuectl/middleware"
	"github.com/KarthikHK-01/queuectl/worker"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func newTestJob() *job.Job {
	return &job.Job{
		ID:         id.NewJobID(),
		Command:    "echo hello",
		State:      job.StateProcessing,
		Attempts:   2,
		MaxRetries: 3,
		WorkerID:   "wkr-test",
	}
}

func onlySpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	return spans[0]
}

func TestTracing_SpanNameAndAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	j := newTestJob()

	if err := mw.TracingWithTracer(tracer)(context.Background(), j, func(context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("Tracing: %v", err)
	}

	span := onlySpan(t, sr)
	if span.Name() != "queuectl.job.execute" {
		t.Errorf("span name = %q, want queuectl.job.execute", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}

	got := make(map[attribute.Key]attribute.Value)
	for _, a := range span.Attributes() {
		got[a.Key] = a.Value
	}
	want := map[attribute.Key]attribute.Value{
		"queuectl.job.id":          attribute.StringValue(j.ID),
		"queuectl.job.command":     attribute.StringValue("echo hello"),
		"queuectl.job.attempt":     attribute.IntValue(3),
		"queuectl.job.max_retries": attribute.IntValue(3),
		"queuectl.worker.id":       attribute.StringValue("wkr-test"),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, got[k].Emit(), v.Emit())
		}
	}
}

// TestTracing_FailedAttempts checks that a non-zero exit, a job timeout
// and a panic recovered below the span all mark the span as failed.
func TestTracing_FailedAttempts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		handler  mw.Handler
		wantDesc string
	}{
		{
			name: "non-zero exit",
			handler: func(context.Context) error {
				return &worker.ExitError{ExitCode: 2, Stderr: "ls: cannot access 'x'", Err: errors.New("exit status 2")}
			},
			wantDesc: "exit code 2: ls: cannot access 'x'",
		},
		{
			name: "timeout",
			handler: func(ctx context.Context) error {
				<-ctx.Done()
				return &worker.ExitError{ExitCode: -1, Err: ctx.Err()}
			},
			wantDesc: "timed out after 20ms",
		},
		{
			name: "panic",
			handler: func(context.Context) error {
				panic("runner exploded")
			},
			wantDesc: "panic: runner exploded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, tracer := setupTestTracer()
			chain := mw.Chain(
				mw.TracingWithTracer(tracer),
				mw.Recover(logger),
				mw.Timeout(logger, 20*time.Millisecond),
			)

			err := chain(context.Background(), newTestJob(), tt.handler)
			if !errors.Is(err, queuectl.ErrExecutionFailure) {
				t.Fatalf("err = %v, want ErrExecutionFailure", err)
			}

			span := onlySpan(t, sr)
			if span.Status().Code != codes.Error {
				t.Errorf("status = %v, want Error", span.Status().Code)
			}
			if !strings.Contains(span.Status().Description, tt.wantDesc) {
				t.Errorf("status description = %q, want it to contain %q", span.Status().Description, tt.wantDesc)
			}

			var exception bool
			for _, ev := range span.Events() {
				if ev.Name == "exception" {
					exception = true
				}
			}
			if !exception {
				t.Error("no exception event recorded")
			}
		})
	}
}

func TestTracing_RetryAttemptsAreSeparateTraces(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	j := newTestJob()
	j.Attempts = 0

	for j.Attempts < 2 {
		_ = m(context.Background(), j, func(context.Context) error {
			return &worker.ExitError{ExitCode: 1, Err: errors.New("exit status 1")}
		})
		j.Attempts++
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	for i, span := range spans {
		var attempt int64
		for _, a := range span.Attributes() {
			if a.Key == "queuectl.job.attempt" {
				attempt = a.Value.AsInt64()
			}
		}
		if attempt != int64(i+1) {
			t.Errorf("span %d attempt = %d, want %d", i, attempt, i+1)
		}
	}
	if spans[0].SpanContext().TraceID() == spans[1].SpanContext().TraceID() {
		t.Error("retry attempts share a trace ID")
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tracer := setupTestTracer()

	var inner trace.SpanContext
	_ = mw.TracingWithTracer(tracer)(context.Background(), newTestJob(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})

	span := onlySpan(t, sr)
	if !inner.IsValid() {
		t.Fatal("handler received no span context")
	}
	if inner.SpanID() != span.SpanContext().SpanID() {
		t.Error("handler span context is not the execution span")
	}
}

func TestTracing_GlobalProviderNoop(t *testing.T) {
	called := false
	err := mw.Tracing()(context.Background(), newTestJob(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Tracing: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}
