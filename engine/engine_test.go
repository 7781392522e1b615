package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/engine"
	"github.com/KarthikHK-01/queuectl/job"
	mw "github.com/KarthikHK-01/queuectl/middleware"
	"github.com/KarthikHK-01/queuectl/settings"
	"github.com/KarthikHK-01/queuectl/store/memory"
	"github.com/KarthikHK-01/queuectl/worker"
)

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type funcRunner func(ctx context.Context, command string) (worker.Result, error)

func (f funcRunner) Run(ctx context.Context, command string) (worker.Result, error) {
	return f(ctx, command)
}

// commandRecorder succeeds for every command except those starting with
// "fail", and records what it ran.
type commandRecorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *commandRecorder) Run(_ context.Context, command string) (worker.Result, error) {
	r.mu.Lock()
	r.runs = append(r.runs, command)
	r.mu.Unlock()
	if strings.HasPrefix(command, "fail") {
		return worker.Result{ExitCode: 1}, &worker.ExitError{ExitCode: 1, Stderr: "boom", Err: errors.New("exit status 1")}
	}
	return worker.Result{}, nil
}

func (r *commandRecorder) count(command string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.runs {
		if c == command {
			n++
		}
	}
	return n
}

func testWorkerConfig() queuectl.WorkerConfig {
	return queuectl.WorkerConfig{
		Count:        1,
		PollInterval: 10 * time.Millisecond,
	}
}

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	base := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithWorkerConfig(testWorkerConfig()),
	}
	eng, err := engine.New(s, append(base, opts...)...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng, s
}

func waitForState(t *testing.T, eng *engine.Engine, jobID string, want job.State) *job.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := eng.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if j.State == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := eng.GetJob(context.Background(), jobID)
	t.Fatalf("job %s: state = %q, want %q", jobID, j.State, want)
	return nil
}

func stopPool(t *testing.T, pool *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestNew_NilStore(t *testing.T) {
	_, err := engine.New(nil)
	if !errors.Is(err, queuectl.ErrNoStore) {
		t.Fatalf("New(nil) = %v, want ErrNoStore", err)
	}
}

func TestEngine_AccessorsAndClose(t *testing.T) {
	eng, s := newEngine(t)
	if eng.Store() != s {
		t.Error("Store() returned a different store")
	}
	if eng.DLQ() == nil {
		t.Error("DLQ() is nil")
	}
	// The observability extension is always registered.
	if n := len(eng.Extensions().Extensions()); n != 1 {
		t.Errorf("extensions = %d, want 1", n)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := eng.StatusCounts(context.Background()); !errors.Is(err, queuectl.ErrStoreUnavailable) {
		t.Fatalf("StatusCounts after Close = %v, want ErrStoreUnavailable", err)
	}
}

// ──────────────────────────────────────────────────
// Enqueue
// ──────────────────────────────────────────────────

func TestEnqueue_Defaults(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	before := time.Now().UTC()
	j, err := eng.Enqueue(ctx, "echo hi")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.ID == "" {
		t.Fatal("expected generated ID")
	}
	if j.State != job.StatePending {
		t.Errorf("State = %q, want pending", j.State)
	}
	if j.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", j.Attempts)
	}
	if j.MaxRetries != settings.DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", j.MaxRetries, settings.DefaultMaxRetries)
	}
	if j.RunAt.Before(before) {
		t.Errorf("RunAt %v before enqueue time %v", j.RunAt, before)
	}

	got, err := eng.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Command != "echo hi" {
		t.Errorf("Command = %q, want %q", got.Command, "echo hi")
	}
}

func TestEnqueue_MaxRetriesFromConfig(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	if err := eng.SetConfig(ctx, settings.KeyMaxRetries, "7"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	j, err := eng.Enqueue(ctx, "true")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", j.MaxRetries)
	}

	j, err = eng.Enqueue(ctx, "true", job.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.MaxRetries != 0 {
		t.Errorf("explicit MaxRetries = %d, want 0", j.MaxRetries)
	}
}

func TestEnqueue_Rejects(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	if _, err := eng.Enqueue(ctx, "true", job.WithID("job1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	tests := []struct {
		name    string
		command string
		opts    []job.Option
		want    error
	}{
		{"empty command", "", nil, queuectl.ErrInvalidJob},
		{"negative retries", "true", []job.Option{job.WithMaxRetries(-1)}, queuectl.ErrInvalidJob},
		{"id with space", "true", []job.Option{job.WithID("a b")}, queuectl.ErrInvalidJob},
		{"duplicate id", "true", []job.Option{job.WithID("job1")}, queuectl.ErrJobAlreadyExists},
		{"bad schedule", "true", []job.Option{job.WithSchedule("every tuesday")}, queuectl.ErrInvalidJob},
		{"run_at and schedule", "true", []job.Option{
			job.WithRunAt(time.Now().Add(time.Hour)),
			job.WithSchedule("@hourly"),
		}, queuectl.ErrInvalidJob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Enqueue(ctx, tt.command, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Enqueue() = %v, want %v", err, tt.want)
			}
		})
	}

	counts, err := eng.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[job.StatePending] != 1 {
		t.Errorf("pending = %d, want 1 (rejected jobs must not persist)", counts[job.StatePending])
	}
}

func TestEnqueue_ScheduleSetsRunAt(t *testing.T) {
	eng, _ := newEngine(t)

	j, err := eng.Enqueue(context.Background(), "backup.sh", job.WithSchedule("@every 1h"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if until := time.Until(j.RunAt); until < 59*time.Minute || until > time.Hour {
		t.Errorf("RunAt in %v, want about 1h", until)
	}
}

func TestEnqueue_FutureJobNotClaimedEarly(t *testing.T) {
	rec := &commandRecorder{}
	eng, _ := newEngine(t, engine.WithRunner(rec))
	ctx := context.Background()

	later, err := eng.Enqueue(ctx, "later", job.WithRunAt(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	now, err := eng.Enqueue(ctx, "now")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	pool, err := eng.StartWorkers(ctx, 1)
	if err != nil {
		t.Fatalf("StartWorkers: %v", err)
	}
	defer stopPool(t, pool)

	waitForState(t, eng, now.ID, job.StateCompleted)
	time.Sleep(50 * time.Millisecond)

	j, err := eng.GetJob(ctx, later.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.State != job.StatePending {
		t.Errorf("future job state = %q, want pending", j.State)
	}
	if rec.count("later") != 0 {
		t.Error("future job was executed")
	}
}

// ──────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────

func TestListJobs(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c"} {
		if _, err := eng.Enqueue(ctx, c); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	jobs, err := eng.ListJobs(ctx, job.StatePending, 0, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len = %d, want 3", len(jobs))
	}
	if jobs[0].Command != "a" || jobs[2].Command != "c" {
		t.Errorf("order = %q..%q, want a..c", jobs[0].Command, jobs[2].Command)
	}

	jobs, err = eng.ListJobs(ctx, job.StatePending, 1, 1)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Command != "b" {
		t.Errorf("page = %v, want [b]", jobs)
	}

	if _, err := eng.ListJobs(ctx, "running", 0, 0); !errors.Is(err, queuectl.ErrInvalidJob) {
		t.Errorf("unknown state: err = %v, want ErrInvalidJob", err)
	}
	if _, err := eng.ListJobs(ctx, job.StatePending, 0, -1); !errors.Is(err, queuectl.ErrInvalidJob) {
		t.Errorf("negative offset: err = %v, want ErrInvalidJob", err)
	}
}

// ──────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────

func TestConfig_SetGetDelete(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	if err := eng.SetConfig(ctx, settings.KeyBaseBackoff, "3"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := eng.SetConfig(ctx, "owner", "ops team"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	v, err := eng.GetConfig(ctx, settings.KeyBaseBackoff)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if v != "3" {
		t.Errorf("base-backoff = %q, want 3", v)
	}

	entries, err := eng.ListConfig(ctx)
	if err != nil {
		t.Fatalf("ListConfig: %v", err)
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	want := []string{settings.KeyBaseBackoff, settings.KeyMaxRetries, "owner"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	if err := eng.DeleteConfig(ctx, "owner"); err != nil {
		t.Fatalf("DeleteConfig: %v", err)
	}
	if _, err := eng.GetConfig(ctx, "owner"); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("GetConfig after delete = %v, want ErrConfigNotFound", err)
	}
	if err := eng.DeleteConfig(ctx, "owner"); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("second DeleteConfig = %v, want ErrConfigNotFound", err)
	}
}

func TestConfig_RejectsInvalidValues(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	for _, tc := range []struct{ key, value string }{
		{settings.KeyBaseBackoff, "0"},
		{settings.KeyBaseBackoff, "fast"},
		{settings.KeyMaxRetries, "-1"},
		{"", "x"},
	} {
		if err := eng.SetConfig(ctx, tc.key, tc.value); !errors.Is(err, queuectl.ErrInvalidConfig) {
			t.Errorf("SetConfig(%q, %q) = %v, want ErrInvalidConfig", tc.key, tc.value, err)
		}
	}
	if _, err := eng.GetConfig(ctx, settings.KeyBaseBackoff); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("rejected value was stored: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Workers
// ──────────────────────────────────────────────────

func TestEngine_EndToEnd(t *testing.T) {
	rec := &commandRecorder{}
	eng, _ := newEngine(t, engine.WithRunner(rec))
	ctx := context.Background()

	pool, err := eng.StartWorkers(ctx, 2)
	if err != nil {
		t.Fatalf("StartWorkers: %v", err)
	}
	defer stopPool(t, pool)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		j, err := eng.Enqueue(ctx, "echo ok")
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, j.ID)
	}
	for _, jobID := range ids {
		j := waitForState(t, eng, jobID, job.StateCompleted)
		if j.Attempts != 1 {
			t.Errorf("job %s: Attempts = %d, want 1", jobID, j.Attempts)
		}
	}
	if n := rec.count("echo ok"); n != 5 {
		t.Errorf("executions = %d, want 5", n)
	}
}

func TestEngine_RetryUntilDeadThenDLQRetry(t *testing.T) {
	rec := &commandRecorder{}
	eng, _ := newEngine(t, engine.WithRunner(rec))
	ctx := context.Background()

	// 0.01^n seconds: 10ms, then 100µs.
	if err := eng.SetConfig(ctx, settings.KeyBaseBackoff, "0.01"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	j, err := eng.Enqueue(ctx, "fail now", job.WithMaxRetries(2))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	pool, err := eng.StartWorkers(ctx, 1)
	if err != nil {
		t.Fatalf("StartWorkers: %v", err)
	}

	dead := waitForState(t, eng, j.ID, job.StateDead)
	if dead.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", dead.Attempts)
	}
	if !strings.Contains(dead.LastError, "exit code 1") {
		t.Errorf("LastError = %q, want exit code", dead.LastError)
	}
	stopPool(t, pool)

	deadJobs, err := eng.ListDeadJobs(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListDeadJobs: %v", err)
	}
	if len(deadJobs) != 1 || deadJobs[0].ID != j.ID {
		t.Fatalf("ListDeadJobs = %v, want [%s]", deadJobs, j.ID)
	}

	retried, err := eng.RetryDeadJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("RetryDeadJob: %v", err)
	}
	if retried.State != job.StatePending || retried.Attempts != 0 || retried.LastError != "" {
		t.Errorf("retried = %+v, want pending with attempts and error reset", retried)
	}
	if _, err := eng.RetryDeadJob(ctx, j.ID); !errors.Is(err, queuectl.ErrInvalidState) {
		t.Errorf("retry non-dead job = %v, want ErrInvalidState", err)
	}
	if _, err := eng.RetryDeadJob(ctx, "missing"); !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Errorf("retry missing job = %v, want ErrJobNotFound", err)
	}
}

func TestEngine_RetryAllDeadJobs(t *testing.T) {
	eng, s := newEngine(t)
	ctx := context.Background()

	for _, jobID := range []string{"d1", "d2"} {
		if err := s.InsertJob(ctx, &job.Job{ID: jobID, Command: "false", State: job.StateDead, Attempts: 4, MaxRetries: 3}); err != nil {
			t.Fatalf("InsertJob: %v", err)
		}
	}
	if _, err := eng.Enqueue(ctx, "true"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	n, err := eng.RetryAllDeadJobs(ctx)
	if err != nil {
		t.Fatalf("RetryAllDeadJobs: %v", err)
	}
	if n != 2 {
		t.Errorf("requeued = %d, want 2", n)
	}
	counts, err := eng.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[job.StatePending] != 3 || counts[job.StateDead] != 0 {
		t.Errorf("counts = %v, want 3 pending and 0 dead", counts)
	}

	n, err = eng.RetryAllDeadJobs(ctx)
	if err != nil {
		t.Fatalf("RetryAllDeadJobs: %v", err)
	}
	if n != 0 {
		t.Errorf("second RetryAllDeadJobs = %d, want 0", n)
	}
}

func TestEngine_InvalidBackoffBlocksWorkers(t *testing.T) {
	eng, s := newEngine(t)
	ctx := context.Background()

	// Bypass SetConfig validation to simulate a value written by hand.
	if err := s.SetSetting(ctx, settings.KeyBaseBackoff, "-2"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if _, err := eng.StartWorkers(ctx, 1); !errors.Is(err, queuectl.ErrInvalidConfig) {
		t.Fatalf("StartWorkers = %v, want ErrInvalidConfig", err)
	}
	if _, err := eng.NewWorker(ctx, ""); !errors.Is(err, queuectl.ErrInvalidConfig) {
		t.Fatalf("NewWorker = %v, want ErrInvalidConfig", err)
	}
	if _, err := eng.StartWorkers(ctx, 0); !errors.Is(err, queuectl.ErrInvalidConfig) {
		t.Fatalf("StartWorkers(0) = %v, want ErrInvalidConfig", err)
	}
}

func TestEngine_SingleWorker(t *testing.T) {
	rec := &commandRecorder{}
	eng, _ := newEngine(t, engine.WithRunner(rec))
	ctx, cancel := context.WithCancel(context.Background())

	w, err := eng.NewWorker(ctx, "wkr-test")
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	if w.ID() != "wkr-test" {
		t.Errorf("ID = %q, want wkr-test", w.ID())
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	j, err := eng.Enqueue(context.Background(), "single")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitForState(t, eng, j.ID, job.StateCompleted)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEngine_MiddlewareAndTelemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	var seen []string
	var mu sync.Mutex
	custom := mw.Middleware(func(ctx context.Context, j *job.Job, next mw.Handler) error {
		mu.Lock()
		seen = append(seen, j.Command)
		mu.Unlock()
		return next(ctx)
	})

	eng, _ := newEngine(t,
		engine.WithRunner(funcRunner(func(context.Context, string) (worker.Result, error) {
			return worker.Result{}, nil
		})),
		engine.WithMiddleware(custom),
		engine.WithTracerProvider(tp),
		engine.WithMeterProvider(mp),
	)
	ctx := context.Background()

	pool, err := eng.StartWorkers(ctx, 1)
	if err != nil {
		t.Fatalf("StartWorkers: %v", err)
	}
	j, err := eng.Enqueue(ctx, "traced")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitForState(t, eng, j.ID, job.StateCompleted)
	stopPool(t, pool)

	mu.Lock()
	if len(seen) != 1 || seen[0] != "traced" {
		t.Errorf("custom middleware saw %v, want [traced]", seen)
	}
	mu.Unlock()

	spans := sr.Ended()
	if len(spans) != 1 || spans[0].Name() != "queuectl.job.execute" {
		t.Fatalf("spans = %d, want one queuectl.job.execute", len(spans))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"queuectl.job.enqueued", "queuectl.job.completed", "queuectl.job.executions"} {
		if !names[want] {
			t.Errorf("metric %s not recorded", want)
		}
	}
}
