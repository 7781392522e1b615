package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
)

// Pool runs a set of workers as goroutines in one errgroup, plus the
// optional heartbeat and reclaim loops.
type Pool struct {
	store        job.Store
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	pollInterval time.Duration
	wake         <-chan struct{}
	claimRate    float64
	logger       *slog.Logger

	heartbeatInterval time.Duration
	staleJobThreshold time.Duration

	workerIDs []string
	active    *activeJobs

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
	done    chan struct{}
	err     error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPoolPollInterval sets the idle wait used by every worker.
func WithPoolPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithPoolWake sets the wake-up channel shared by the workers.
func WithPoolWake(ch <-chan struct{}) PoolOption {
	return func(p *Pool) { p.wake = ch }
}

// WithClaimRate limits claims per second across all workers. Zero is unlimited.
func WithClaimRate(perSecond float64) PoolOption {
	return func(p *Pool) { p.claimRate = perSecond }
}

// WithHeartbeatInterval sets how often the pool heartbeats in-flight
// jobs. A zero value disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithStaleJobThreshold sets how long a processing job may go without a
// heartbeat before the pool returns it to pending. A zero value disables
// reclaim.
func WithStaleJobThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.staleJobThreshold = d }
}

// NewPool creates a worker pool.
func NewPool(
	store job.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	p := &Pool{
		store:        store,
		executor:     executor,
		extensions:   extensions,
		concurrency:  1,
		pollInterval: DefaultPollInterval,
		logger:       logger,
		active:       newActiveJobs(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

// WorkerIDs returns the identifiers of the pool's workers once started.
func (p *Pool) WorkerIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.workerIDs...)
}

// Start launches the worker goroutines and returns immediately.
// Cancelling ctx has the same effect as Stop without a deadline.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.done != nil {
		return errors.New("worker pool already stopped")
	}
	p.running = true

	runCtx, cancel := context.WithCancel(ctx)
	p.stop = cancel
	p.done = make(chan struct{})

	// A fatal error in one worker cancels gctx and soft-stops the rest.
	g, gctx := errgroup.WithContext(runCtx)

	var limiter *rate.Limiter
	if p.claimRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.claimRate), 1)
	}

	p.logger.Info("worker pool starting",
		slog.Int("concurrency", p.concurrency),
		slog.Duration("poll_interval", p.pollInterval),
		slog.Duration("heartbeat_interval", p.heartbeatInterval),
		slog.Duration("stale_job_threshold", p.staleJobThreshold),
	)

	for range p.concurrency {
		w := NewWorker(id.NewWorkerID(), p.store, p.executor,
			WithPollInterval(p.pollInterval),
			WithWake(p.wake),
			WithLimiter(limiter),
			WithLogger(p.logger),
		)
		w.active = p.active
		p.workerIDs = append(p.workerIDs, w.ID())
		g.Go(func() error { return w.Run(gctx) })
	}

	// Heartbeats outlive shutdown until the last in-flight job is resolved.
	hbCtx, hbCancel := context.WithCancel(context.WithoutCancel(ctx))
	var hb sync.WaitGroup
	if p.heartbeatInterval > 0 {
		hb.Add(1)
		go func() {
			defer hb.Done()
			p.every(hbCtx, p.heartbeatInterval, p.sendHeartbeats)
		}()
	}
	if p.staleJobThreshold > 0 {
		g.Go(func() error {
			p.every(gctx, p.staleJobThreshold, p.reclaimStaleJobs)
			return nil
		})
	}

	go func() {
		err := g.Wait()
		hbCancel()
		hb.Wait()
		cancel()
		p.mu.Lock()
		p.err = err
		p.running = false
		p.mu.Unlock()
		close(p.done)
	}()

	return nil
}

// Stop signals every worker to stop claiming and waits for in-flight
// jobs to finish. If ctx expires first, in-flight commands are cancelled
// and Stop waits for their outcomes to be recorded.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	p.logger.Info("worker pool stopping")
	stop()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		n := p.active.cancelAll()
		p.logger.Warn("worker pool shutdown timed out, cancelled active jobs",
			slog.Int("cancelled", n),
		)
		<-done
	}
	return nil
}

// Wait blocks until every worker has returned and reports the first
// fatal worker error. It returns nil immediately if the pool never started.
func (p *Pool) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pool) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (p *Pool) sendHeartbeats(ctx context.Context) {
	now := time.Now().UTC()
	for jobID, workerID := range p.active.snapshot() {
		if err := p.store.HeartbeatJob(ctx, jobID, workerID, now); err != nil {
			p.logger.Warn("heartbeat failed",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Pool) reclaimStaleJobs(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.staleJobThreshold)
	n, err := p.store.ReclaimStaleJobs(ctx, cutoff)
	if err != nil {
		p.logger.Error("reclaim stale jobs error", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		p.logger.Info("reclaimed stale jobs", slog.Int64("count", n))
		p.extensions.EmitJobsReclaimed(ctx, n)
	}
}
