package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/backoff"
	"github.com/KarthikHK-01/queuectl/cron"
	"github.com/KarthikHK-01/queuectl/dlq"
	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
	mw "github.com/KarthikHK-01/queuectl/middleware"
	"github.com/KarthikHK-01/queuectl/observability"
	"github.com/KarthikHK-01/queuectl/settings"
	"github.com/KarthikHK-01/queuectl/store"
	"github.com/KarthikHK-01/queuectl/worker"
)

// DefaultListLimit is used by ListJobs when the caller passes no limit.
const DefaultListLimit = 100

// instrumentationName scopes the engine's tracer and meter.
const instrumentationName = "github.com/KarthikHK-01/queuectl"

// Engine exposes the queue's core operations over a single store.
type Engine struct {
	store      store.Store
	extensions *ext.Registry
	exts       []ext.Extension
	dlqService *dlq.Service
	runner     worker.Runner
	mws        []mw.Middleware
	workerCfg  queuectl.WorkerConfig
	logger     *slog.Logger

	// wake nudges idle in-process workers after an enqueue.
	wake chan struct{}

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	closeOnce sync.Once
	closeErr  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware appends middleware after the default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithRunner replaces the default sh -c runner.
func WithRunner(r worker.Runner) Option {
	return func(eng *Engine) { eng.runner = r }
}

// WithWorkerConfig sets the worker settings used by NewWorker and StartWorkers.
func WithWorkerConfig(cfg queuectl.WorkerConfig) Option {
	return func(eng *Engine) { eng.workerCfg = cfg }
}

// WithTracerProvider sets the OTel TracerProvider used by the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets the OTel MeterProvider used by the metrics
// middleware and the observability extension. If not set, the global
// provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates an Engine over s. The store must already be migrated.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, queuectl.ErrNoStore
	}

	eng := &Engine{
		store:     s,
		runner:    &worker.ShellRunner{},
		workerCfg: queuectl.DefaultConfig().Worker,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = slog.Default()
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	eng.dlqService = dlq.NewService(s,
		dlq.WithLogger(eng.logger),
		dlq.WithExtensions(eng.extensions),
	)

	return eng, nil
}

// ──────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────

// Enqueue persists a new pending job running command.
//
// Without WithMaxRetries the retry ceiling comes from the max_retries
// config key. WithRunAt and WithSchedule delay the first claim and are
// mutually exclusive. Idle workers in this process are woken.
func (eng *Engine) Enqueue(ctx context.Context, command string, opts ...job.Option) (*job.Job, error) {
	o := job.NewOptions(opts...)
	now := time.Now().UTC()

	jobID := o.ID
	if jobID == "" {
		jobID = id.NewJobID()
	} else if err := id.Validate(jobID); err != nil {
		return nil, fmt.Errorf("%w: %v", queuectl.ErrInvalidJob, err)
	}

	var maxRetries int
	if o.MaxRetries != nil {
		maxRetries = *o.MaxRetries
	} else {
		n, err := settings.MaxRetries(ctx, eng.store)
		if err != nil {
			return nil, err
		}
		maxRetries = n
	}

	runAt := now
	switch {
	case o.Schedule != "" && !o.RunAt.IsZero():
		return nil, fmt.Errorf("%w: run_at and schedule are mutually exclusive", queuectl.ErrInvalidJob)
	case o.Schedule != "":
		next, err := cron.NextRun(o.Schedule, now)
		if err != nil {
			return nil, err
		}
		runAt = next
	case !o.RunAt.IsZero():
		runAt = o.RunAt.UTC()
	}

	j := &job.Job{
		ID:         jobID,
		Command:    command,
		State:      job.StatePending,
		MaxRetries: maxRetries,
		RunAt:      runAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}

	if err := eng.store.InsertJob(ctx, j); err != nil {
		return nil, err
	}

	eng.logger.Debug("job enqueued",
		slog.String("job_id", j.ID),
		slog.Int("max_retries", j.MaxRetries),
		slog.Time("run_at", j.RunAt),
	)
	eng.extensions.EmitJobEnqueued(ctx, j)

	eng.signalWake()
	return j, nil
}

// GetJob returns one job by ID.
func (eng *Engine) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	return eng.store.GetJob(ctx, jobID)
}

// StatusCounts returns the number of jobs in every state, including zeros.
func (eng *Engine) StatusCounts(ctx context.Context) (map[job.State]int64, error) {
	return eng.store.CountJobsByState(ctx)
}

// ListJobs returns jobs in state, oldest first. A non-positive limit
// means DefaultListLimit.
func (eng *Engine) ListJobs(ctx context.Context, state job.State, limit, offset int) ([]*job.Job, error) {
	if _, err := job.ParseState(string(state)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be non-negative, got %d", queuectl.ErrInvalidJob, offset)
	}
	return eng.store.ListJobsByState(ctx, state, job.ListOpts{Limit: limit, Offset: offset})
}

// ──────────────────────────────────────────────────
// Dead letter queue
// ──────────────────────────────────────────────────

// ListDeadJobs returns dead jobs, oldest first.
func (eng *Engine) ListDeadJobs(ctx context.Context, limit, offset int) ([]*job.Job, error) {
	return eng.dlqService.List(ctx, job.ListOpts{Limit: limit, Offset: offset})
}

// RetryDeadJob moves one dead job back to pending with attempts reset.
func (eng *Engine) RetryDeadJob(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := eng.dlqService.Retry(ctx, jobID)
	if err != nil {
		return nil, err
	}
	eng.signalWake()
	return j, nil
}

// RetryAllDeadJobs requeues every dead job and returns how many moved.
func (eng *Engine) RetryAllDeadJobs(ctx context.Context) (int64, error) {
	n, err := eng.dlqService.RetryAll(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		eng.signalWake()
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────

// GetConfig returns the durable value for key.
func (eng *Engine) GetConfig(ctx context.Context, key string) (string, error) {
	if err := settings.ValidateKey(key); err != nil {
		return "", err
	}
	return eng.store.GetSetting(ctx, key)
}

// ListConfig returns every durable config entry ordered by key.
func (eng *Engine) ListConfig(ctx context.Context) ([]settings.Entry, error) {
	return eng.store.ListSettings(ctx)
}

// SetConfig stores value under key. Values for keys the engine
// interprets are validated first.
func (eng *Engine) SetConfig(ctx context.Context, key, value string) error {
	if err := settings.Validate(key, value); err != nil {
		return err
	}
	if err := eng.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	eng.logger.Info("config updated", slog.String("key", key), slog.String("value", value))
	return nil
}

// DeleteConfig removes key, returning queuectl.ErrConfigNotFound if it
// was not set.
func (eng *Engine) DeleteConfig(ctx context.Context, key string) error {
	if err := settings.ValidateKey(key); err != nil {
		return err
	}
	return eng.store.DeleteSetting(ctx, key)
}

// ──────────────────────────────────────────────────
// Workers
// ──────────────────────────────────────────────────

// NewWorker builds a single worker identified by workerID, or a generated
// ID when empty. The base-backoff config key is read once here.
func (eng *Engine) NewWorker(ctx context.Context, workerID string) (*worker.Worker, error) {
	executor, err := eng.newExecutor(ctx)
	if err != nil {
		return nil, err
	}
	if workerID == "" {
		workerID = id.NewWorkerID()
	}
	return worker.NewWorker(workerID, eng.store, executor,
		worker.WithPollInterval(eng.workerCfg.PollInterval),
		worker.WithWake(eng.wake),
		worker.WithLogger(eng.logger),
	), nil
}

// StartWorkers starts a pool of n workers and returns it running.
// Stop it with Pool.Stop; Pool.Wait reports a fatal store error.
func (eng *Engine) StartWorkers(ctx context.Context, n int) (*worker.Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", queuectl.ErrInvalidConfig, n)
	}
	executor, err := eng.newExecutor(ctx)
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool(eng.store, executor, eng.extensions, eng.logger,
		worker.WithPoolConcurrency(n),
		worker.WithPoolPollInterval(eng.workerCfg.PollInterval),
		worker.WithPoolWake(eng.wake),
		worker.WithClaimRate(eng.workerCfg.ClaimRate),
		worker.WithHeartbeatInterval(eng.workerCfg.HeartbeatInterval),
		worker.WithStaleJobThreshold(eng.workerCfg.StaleJobThreshold),
	)
	if err := pool.Start(ctx); err != nil {
		return nil, err
	}
	return pool, nil
}

// newExecutor reads base-backoff and assembles the middleware chain:
// recover, tracing, metrics, logging, timeout, then user middleware.
func (eng *Engine) newExecutor(ctx context.Context) (*worker.Executor, error) {
	base, err := settings.BaseBackoff(ctx, eng.store)
	if err != nil {
		return nil, err
	}

	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	mws := make([]mw.Middleware, 0, 5+len(eng.mws))
	mws = append(mws,
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.logger, eng.workerCfg.JobTimeout),
	)
	mws = append(mws, eng.mws...)

	eng.logger.Debug("retry backoff configured", slog.Float64("base", base))
	return worker.NewExecutor(eng.store, eng.runner, eng.extensions, backoff.NewPower(base), eng.logger, mws...), nil
}

func (eng *Engine) signalWake() {
	select {
	case eng.wake <- struct{}{}:
	default:
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Store returns the underlying store.
func (eng *Engine) Store() store.Store { return eng.store }

// DLQ returns the dead letter queue service.
func (eng *Engine) DLQ() *dlq.Service { return eng.dlqService }

// Close emits the Shutdown hook and closes the store. Stop any running
// pools first. Close is idempotent.
func (eng *Engine) Close() error {
	eng.closeOnce.Do(func() {
		eng.extensions.EmitShutdown(context.Background())
		eng.closeErr = eng.store.Close()
	})
	return eng.closeErr
}
