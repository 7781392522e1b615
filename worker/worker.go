package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// DefaultPollInterval is the idle wait between claims on an empty queue.
const DefaultPollInterval = 2 * time.Second

// Worker claims and executes jobs one at a time until its context is
// cancelled.
type Worker struct {
	id           string
	store        job.Store
	executor     *Executor
	pollInterval time.Duration
	wake         <-chan struct{}
	limiter      *rate.Limiter
	active       *activeJobs
	logger       *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval sets the idle wait between claim attempts.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) { w.pollInterval = d }
}

// WithWake sets a channel that ends an idle wait early. Engine.Enqueue
// signals it so in-process workers pick up new jobs immediately.
func WithWake(ch <-chan struct{}) Option {
	return func(w *Worker) { w.wake = ch }
}

// WithLimiter sets a rate limiter consulted before every claim.
func WithLimiter(l *rate.Limiter) Option {
	return func(w *Worker) { w.limiter = l }
}

// WithLogger sets the worker logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// NewWorker creates a worker identified by workerID.
func NewWorker(workerID string, store job.Store, executor *Executor, opts ...Option) *Worker {
	w := &Worker{
		id:           workerID,
		store:        store,
		executor:     executor,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With(slog.String("worker_id", workerID))
	return w
}

// ID returns the worker identifier written to claimed jobs.
func (w *Worker) ID() string { return w.id }

// Run claims and executes jobs until ctx is cancelled, then returns nil
// once the job in flight, if any, has been resolved. The in-flight job
// does not observe ctx: shutdown never interrupts a running command.
//
// A store error from claim or update is fatal and returned; a job being
// executed at that moment stays in processing.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", slog.Duration("poll_interval", w.pollInterval))
	defer w.logger.Info("worker stopped")

	// Claims run on a context that survives shutdown so a claim that has
	// already begun is never half-applied.
	storeCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return nil //nolint:nilerr // cancelled while waiting for a token
			}
		}

		j, err := w.store.ClaimJob(storeCtx, w.id, time.Now().UTC())
		if err != nil {
			return w.fatal("claim", err)
		}
		if j == nil {
			w.idle(ctx)
			continue
		}

		if err := w.execute(storeCtx, j); err != nil {
			return w.fatal("update", err)
		}
	}
}

func (w *Worker) execute(ctx context.Context, j *job.Job) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.active.track(j.ID, w.id, cancel)
	defer w.active.untrack(j.ID)

	return w.executor.Execute(jobCtx, j)
}

// idle waits for the poll interval, a wake-up, or shutdown.
func (w *Worker) idle(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()

	select {
	case <-t.C:
	case <-w.wake:
	case <-ctx.Done():
	}
}

func (w *Worker) fatal(op string, err error) error {
	if !errors.Is(err, queuectl.ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", queuectl.ErrStoreUnavailable, err)
	}
	w.logger.Error("worker stopping on store error",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("worker %s: %s: %w", w.id, op, err)
}

// activeJobs tracks in-flight jobs for heartbeats and hard cancellation.
// A nil *activeJobs ignores every call.
type activeJobs struct {
	mu   sync.Mutex
	jobs map[string]activeJob
}

type activeJob struct {
	workerID string
	cancel   context.CancelFunc
}

func newActiveJobs() *activeJobs {
	return &activeJobs{jobs: make(map[string]activeJob)}
}

func (a *activeJobs) track(jobID, workerID string, cancel context.CancelFunc) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.jobs[jobID] = activeJob{workerID: workerID, cancel: cancel}
	a.mu.Unlock()
}

func (a *activeJobs) untrack(jobID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	delete(a.jobs, jobID)
	a.mu.Unlock()
}

// snapshot returns job ID to worker ID for every in-flight job.
func (a *activeJobs) snapshot() map[string]string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.jobs))
	for jobID, aj := range a.jobs {
		out[jobID] = aj.workerID
	}
	return out
}

// cancelAll cancels every in-flight job and returns how many there were.
func (a *activeJobs) cancelAll() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, aj := range a.jobs {
		aj.cancel()
	}
	return len(a.jobs)
}
