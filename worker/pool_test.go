package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/backoff"
	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/middleware"
	"github.com/KarthikHK-01/queuectl/store/memory"
	"github.com/KarthikHK-01/queuectl/worker"
)

func setupTestPool(t *testing.T, s *memory.Store, r worker.Runner, opts ...worker.PoolOption) *worker.Pool {
	t.Helper()
	logger := slog.Default()
	extensions := ext.NewRegistry(logger)
	executor := worker.NewExecutor(s, r, extensions, backoff.NewConstant(0), logger,
		middleware.Recover(logger),
	)
	opts = append([]worker.PoolOption{worker.WithPoolPollInterval(10 * time.Millisecond)}, opts...)
	return worker.NewPool(s, executor, extensions, logger, opts...)
}

func enqueue(t *testing.T, s *memory.Store, command string, maxRetries int) *job.Job {
	t.Helper()
	j := &job.Job{ID: id.NewJobID(), Command: command, MaxRetries: maxRetries}
	if err := s.InsertJob(context.Background(), j); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}
	return j
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func jobState(t *testing.T, s *memory.Store, jobID string) *job.Job {
	t.Helper()
	got, err := s.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return got
}

func stopPool(t *testing.T, p *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPool_StartStop(t *testing.T) {
	pool := setupTestPool(t, memory.New(), succeed(), worker.WithPoolConcurrency(2))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	// Double start should be no-op.
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected double-start error: %v", err)
	}
	if n := len(pool.WorkerIDs()); n != 2 {
		t.Errorf("WorkerIDs len = %d, want 2", n)
	}

	stopPool(t, pool)
	// Double stop should be no-op.
	stopPool(t, pool)

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestPool_WaitBeforeStartReturnsNil(t *testing.T) {
	pool := setupTestPool(t, memory.New(), succeed())
	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestPool_EachJobRunsOnce(t *testing.T) {
	s := memory.New()
	var mu sync.Mutex
	runs := make(map[string]int)
	r := funcRunner(func(_ context.Context, command string) (worker.Result, error) {
		mu.Lock()
		runs[command]++
		mu.Unlock()
		return worker.Result{}, nil
	})
	pool := setupTestPool(t, s, r, worker.WithPoolConcurrency(4))

	const n = 25
	jobs := make([]*job.Job, n)
	for i := range jobs {
		jobs[i] = enqueue(t, s, id.NewJobID(), 3)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 5*time.Second, "all jobs completed", func() bool {
		counts, _ := s.CountJobsByState(context.Background())
		return counts[job.StateCompleted] == n
	})
	stopPool(t, pool)

	mu.Lock()
	defer mu.Unlock()
	for _, j := range jobs {
		if runs[j.Command] != 1 {
			t.Errorf("job %s ran %d times, want 1", j.ID, runs[j.Command])
		}
	}
}

func TestPool_RetriesUntilDead(t *testing.T) {
	s := memory.New()
	var attempts atomic.Int32
	r := funcRunner(func(context.Context, string) (worker.Result, error) {
		attempts.Add(1)
		return worker.Result{ExitCode: 1}, &worker.ExitError{ExitCode: 1, Err: errors.New("exit status 1")}
	})
	pool := setupTestPool(t, s, r)
	j := enqueue(t, s, "false", 2)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 5*time.Second, "job dead", func() bool {
		return jobState(t, s, j.ID).State == job.StateDead
	})
	stopPool(t, pool)

	got := jobState(t, s, j.ID)
	if got.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", got.Attempts)
	}
	if attempts.Load() != 3 {
		t.Errorf("runner called %d times, want 3", attempts.Load())
	}
}

func TestPool_SoftShutdownFinishesInFlightJob(t *testing.T) {
	s := memory.New()
	started := make(chan struct{})
	release := make(chan struct{})
	r := funcRunner(func(ctx context.Context, _ string) (worker.Result, error) {
		close(started)
		select {
		case <-release:
			return worker.Result{}, nil
		case <-ctx.Done():
			return worker.Result{}, ctx.Err()
		}
	})
	pool := setupTestPool(t, s, r)
	j := enqueue(t, s, "sleep", 3)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	stopped := make(chan struct{})
	go func() {
		_ = pool.Stop(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the job finished")
	}

	if got := jobState(t, s, j.ID); got.State != job.StateCompleted {
		t.Errorf("State = %q, want completed", got.State)
	}
}

func TestPool_StopDeadlineCancelsActiveJobs(t *testing.T) {
	s := memory.New()
	started := make(chan struct{})
	r := funcRunner(func(ctx context.Context, _ string) (worker.Result, error) {
		close(started)
		<-ctx.Done()
		return worker.Result{ExitCode: -1}, &worker.ExitError{ExitCode: -1, Err: ctx.Err()}
	})
	pool := setupTestPool(t, s, r)
	j := enqueue(t, s, "sleep 1000", 3)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := jobState(t, s, j.ID)
	if got.State != job.StatePending || got.Attempts != 1 {
		t.Errorf("job = %s/%d, want pending/1 after hard cancel", got.State, got.Attempts)
	}
}

func TestPool_FatalStoreErrorStopsPool(t *testing.T) {
	s := memory.New()
	pool := setupTestPool(t, s, succeed(), worker.WithPoolConcurrency(3))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = s.Close()

	done := make(chan error, 1)
	go func() { done <- pool.Wait() }()

	select {
	case err := <-done:
		if !errors.Is(err, queuectl.ErrStoreUnavailable) {
			t.Fatalf("Wait = %v, want ErrStoreUnavailable", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool kept running after a store failure")
	}
}

func TestPool_WakeEndsIdleWait(t *testing.T) {
	s := memory.New()
	wake := make(chan struct{}, 1)
	pool := setupTestPool(t, s, succeed(),
		worker.WithPoolPollInterval(time.Hour),
		worker.WithPoolWake(wake),
	)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopPool(t, pool)

	// Let the worker find the queue empty and go idle.
	time.Sleep(20 * time.Millisecond)
	j := enqueue(t, s, "true", 0)
	wake <- struct{}{}

	waitFor(t, 2*time.Second, "woken worker to run the job", func() bool {
		return jobState(t, s, j.ID).State == job.StateCompleted
	})
}

func TestPool_ClaimRateLimit(t *testing.T) {
	s := memory.New()
	pool := setupTestPool(t, s, succeed(),
		worker.WithPoolConcurrency(4),
		worker.WithClaimRate(20),
	)
	for range 5 {
		enqueue(t, s, "true", 0)
	}

	start := time.Now()
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 5*time.Second, "rate-limited jobs", func() bool {
		counts, _ := s.CountJobsByState(context.Background())
		return counts[job.StateCompleted] == 5
	})
	stopPool(t, pool)

	// Five claims at 20/s with a burst of one need at least 200ms.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 jobs finished in %v, rate limit not applied", elapsed)
	}
}

func TestPool_ReclaimsStaleJobs(t *testing.T) {
	s := memory.New()
	old := time.Now().UTC().Add(-time.Hour)
	orphan := &job.Job{
		ID:          id.NewJobID(),
		Command:     "true",
		State:       job.StateProcessing,
		MaxRetries:  3,
		WorkerID:    "wkr-crashed",
		HeartbeatAt: &old,
	}
	if err := s.InsertJob(context.Background(), orphan); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}

	pool := setupTestPool(t, s, succeed(),
		worker.WithHeartbeatInterval(10*time.Millisecond),
		worker.WithStaleJobThreshold(50*time.Millisecond),
	)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopPool(t, pool)

	waitFor(t, 5*time.Second, "orphaned job reclaimed and completed", func() bool {
		return jobState(t, s, orphan.ID).State == job.StateCompleted
	})
	if got := jobState(t, s, orphan.ID); got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (reclaim does not count an attempt)", got.Attempts)
	}
}

func TestPool_HeartbeatsInFlightJob(t *testing.T) {
	s := memory.New()
	started := make(chan struct{})
	release := make(chan struct{})
	r := funcRunner(func(context.Context, string) (worker.Result, error) {
		close(started)
		<-release
		return worker.Result{}, nil
	})
	pool := setupTestPool(t, s, r, worker.WithHeartbeatInterval(10*time.Millisecond))
	j := enqueue(t, s, "long", 0)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	first := jobState(t, s, j.ID).HeartbeatAt
	if first == nil {
		t.Fatal("claimed job has no heartbeat")
	}
	waitFor(t, 2*time.Second, "heartbeat refresh", func() bool {
		hb := jobState(t, s, j.ID).HeartbeatAt
		return hb != nil && hb.After(*first)
	})

	close(release)
	stopPool(t, pool)
}
