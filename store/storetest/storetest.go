// Package storetest is the behavioural contract every store.Store backend
// must satisfy. Backend test files call Run with a factory that returns a
// freshly migrated, empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/id"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
	"github.com/KarthikHK-01/queuectl/store"
)

// Factory returns a migrated store with no jobs. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"InsertDuplicate", testInsertDuplicate},
		{"InsertClampsUpdatedAt", testInsertClampsUpdatedAt},
		{"GetMissing", testGetMissing},
		{"ListJobsByState", testListJobsByState},
		{"ListReadyJobs", testListReadyJobs},
		{"ClaimOrder", testClaimOrder},
		{"ClaimTieBreak", testClaimTieBreak},
		{"ClaimAfterResetDeadJobs", testClaimAfterResetDeadJobs},
		{"ClaimSkipsFuture", testClaimSkipsFuture},
		{"ClaimEmpty", testClaimEmpty},
		{"ClaimConcurrent", testClaimConcurrent},
		{"UpdateJob", testUpdateJob},
		{"UpdateMissing", testUpdateMissing},
		{"CountJobsByState", testCountJobsByState},
		{"ResetDeadJob", testResetDeadJob},
		{"ResetDeadJobs", testResetDeadJobs},
		{"Heartbeat", testHeartbeat},
		{"ReclaimStaleJobs", testReclaimStaleJobs},
		{"SettingsSeeded", testSettingsSeeded},
		{"SettingsCRUD", testSettingsCRUD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// base is a fixed, second-aligned instant so every backend round-trips
// timestamps exactly.
var base = time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

func newJob(command string, created time.Time) *job.Job {
	return &job.Job{
		ID:         id.NewJobID(),
		Command:    command,
		State:      job.StatePending,
		MaxRetries: 3,
		RunAt:      created,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func mustInsert(t *testing.T, s store.Store, j *job.Job) {
	t.Helper()
	if err := s.InsertJob(context.Background(), j); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}
}

func testInsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("echo hello", base)
	mustInsert(t, s, j)

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Command != "echo hello" {
		t.Errorf("Command = %q, want %q", got.Command, "echo hello")
	}
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}
	if got.Attempts != 0 || got.MaxRetries != 3 {
		t.Errorf("Attempts/MaxRetries = %d/%d, want 0/3", got.Attempts, got.MaxRetries)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}
	if !got.RunAt.Equal(base) {
		t.Errorf("RunAt = %v, want %v", got.RunAt, base)
	}
	if got.HeartbeatAt != nil {
		t.Errorf("HeartbeatAt = %v, want nil", got.HeartbeatAt)
	}

	// Zero timestamps and state are defaulted on insert.
	bare := &job.Job{ID: id.NewJobID(), Command: "true", MaxRetries: 1}
	mustInsert(t, s, bare)
	got, err = s.GetJob(ctx, bare.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StatePending {
		t.Errorf("defaulted State = %q, want pending", got.State)
	}
	if got.CreatedAt.IsZero() || got.RunAt.IsZero() {
		t.Errorf("defaulted timestamps are zero: created=%v run_at=%v", got.CreatedAt, got.RunAt)
	}
}

func testInsertDuplicate(t *testing.T, s store.Store) {
	j := newJob("true", base)
	mustInsert(t, s, j)

	dup := newJob("false", base)
	dup.ID = j.ID
	err := s.InsertJob(context.Background(), dup)
	if !errors.Is(err, queuectl.ErrJobAlreadyExists) {
		t.Fatalf("InsertJob(duplicate) = %v, want ErrJobAlreadyExists", err)
	}

	got, err := s.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Command != "true" {
		t.Errorf("duplicate insert overwrote command: %q", got.Command)
	}
}

func testInsertClampsUpdatedAt(t *testing.T, s store.Store) {
	j := newJob("skewed", base)
	j.UpdatedAt = base.Add(-time.Hour)
	mustInsert(t, s, j)

	got, err := s.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Fatalf("GetJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func testListJobsByState(t *testing.T, s store.Store) {
	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		j := newJob(fmt.Sprintf("echo %d", i), base.Add(time.Duration(i)*time.Second))
		mustInsert(t, s, j)
		ids = append(ids, j.ID)
	}
	dead := newJob("false", base)
	dead.State = job.StateDead
	mustInsert(t, s, dead)

	all, err := s.ListJobsByState(ctx, job.StatePending, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListJobsByState: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	for i, j := range all {
		if j.ID != ids[i] {
			t.Errorf("all[%d] = %s, want %s", i, j.ID, ids[i])
		}
	}

	page, err := s.ListJobsByState(ctx, job.StatePending, job.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobsByState(page): %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[1] || page[1].ID != ids[2] {
		t.Errorf("page = %v, want [%s %s]", jobIDs(page), ids[1], ids[2])
	}

	beyond, err := s.ListJobsByState(ctx, job.StatePending, job.ListOpts{Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("ListJobsByState(beyond): %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("beyond = %v, want empty", jobIDs(beyond))
	}

	none, err := s.ListJobsByState(ctx, job.StateCompleted, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListJobsByState(completed): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("completed = %v, want empty", jobIDs(none))
	}
}

func testListReadyJobs(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(10 * time.Minute)

	later := newJob("later", base)
	later.RunAt = base.Add(5 * time.Minute)
	mustInsert(t, s, later)

	first := newJob("first", base.Add(time.Second))
	first.RunAt = base.Add(time.Minute)
	mustInsert(t, s, first)

	future := newJob("future", base)
	future.RunAt = now.Add(time.Hour)
	mustInsert(t, s, future)

	running := newJob("running", base)
	running.State = job.StateProcessing
	mustInsert(t, s, running)

	ready, err := s.ListReadyJobs(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListReadyJobs: %v", err)
	}
	if len(ready) != 2 || ready[0].ID != first.ID || ready[1].ID != later.ID {
		t.Fatalf("ready = %v, want [%s %s]", jobIDs(ready), first.ID, later.ID)
	}

	one, err := s.ListReadyJobs(ctx, now, 1)
	if err != nil {
		t.Fatalf("ListReadyJobs(limit 1): %v", err)
	}
	if len(one) != 1 || one[0].ID != first.ID {
		t.Errorf("limited = %v, want [%s]", jobIDs(one), first.ID)
	}
}

// testClaimTieBreak covers jobs due at the same instant: the older one
// wins even when its ID sorts after the newer one's.
func testClaimTieBreak(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(10 * time.Minute)
	runAt := base.Add(time.Minute)

	newer := newJob("newer", base.Add(time.Second))
	newer.ID = "aaa-newer"
	newer.RunAt = runAt
	mustInsert(t, s, newer)

	older := newJob("older", base)
	older.ID = "zzz-older"
	older.RunAt = runAt
	mustInsert(t, s, older)

	ready, err := s.ListReadyJobs(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListReadyJobs: %v", err)
	}
	if len(ready) != 2 || ready[0].ID != older.ID || ready[1].ID != newer.ID {
		t.Fatalf("ready = %v, want [%s %s]", jobIDs(ready), older.ID, newer.ID)
	}

	one, err := s.ListReadyJobs(ctx, now, 1)
	if err != nil {
		t.Fatalf("ListReadyJobs(limit 1): %v", err)
	}
	if len(one) != 1 || one[0].ID != older.ID {
		t.Fatalf("limited = %v, want [%s]", jobIDs(one), older.ID)
	}

	for _, want := range []string{older.ID, newer.ID} {
		got, err := s.ClaimJob(ctx, "wkr-1", now)
		if err != nil {
			t.Fatalf("ClaimJob: %v", err)
		}
		if got == nil || got.ID != want {
			t.Fatalf("ClaimJob = %v, want %s", got, want)
		}
	}
}

// testClaimAfterResetDeadJobs requeues dead jobs, which gives them all the
// same run_at, and checks they are still claimed oldest first.
func testClaimAfterResetDeadJobs(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(10 * time.Minute)

	var want []string
	for i, name := range []string{"ccc", "bbb", "aaa"} {
		j := newJob("dead "+name, base.Add(time.Duration(i)*time.Second))
		j.ID = name
		j.State = job.StateDead
		j.Attempts = 4
		mustInsert(t, s, j)
		want = append(want, j.ID)
	}

	n, err := s.ResetDeadJobs(ctx, now)
	if err != nil {
		t.Fatalf("ResetDeadJobs: %v", err)
	}
	if n != 3 {
		t.Fatalf("ResetDeadJobs = %d, want 3", n)
	}

	for _, w := range want {
		got, err := s.ClaimJob(ctx, "wkr-1", now)
		if err != nil {
			t.Fatalf("ClaimJob: %v", err)
		}
		if got == nil || got.ID != w {
			t.Fatalf("ClaimJob = %v, want %s", got, w)
		}
	}
}

func testClaimOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(10 * time.Minute)

	older := newJob("older", base)
	newer := newJob("newer", base.Add(time.Second))
	mustInsert(t, s, newer)
	mustInsert(t, s, older)

	got, err := s.ClaimJob(ctx, "wkr-1", now)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("ClaimJob = %v, want %s", got, older.ID)
	}
	if got.State != job.StateProcessing {
		t.Errorf("State = %q, want processing", got.State)
	}
	if got.WorkerID != "wkr-1" {
		t.Errorf("WorkerID = %q, want wkr-1", got.WorkerID)
	}
	if got.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0 (claim does not count)", got.Attempts)
	}
	if got.HeartbeatAt == nil || !got.HeartbeatAt.Equal(now) {
		t.Errorf("HeartbeatAt = %v, want %v", got.HeartbeatAt, now)
	}

	stored, err := s.GetJob(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.State != job.StateProcessing || stored.WorkerID != "wkr-1" {
		t.Errorf("stored = %s/%s, want processing/wkr-1", stored.State, stored.WorkerID)
	}

	got, err = s.ClaimJob(ctx, "wkr-2", now)
	if err != nil {
		t.Fatalf("ClaimJob(second): %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("ClaimJob(second) = %v, want %s", got, newer.ID)
	}
}

func testClaimSkipsFuture(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(time.Minute)

	j := newJob("later", base)
	j.RunAt = now.Add(time.Second)
	mustInsert(t, s, j)

	got, err := s.ClaimJob(ctx, "wkr-1", now)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if got != nil {
		t.Fatalf("ClaimJob = %s, want nil before run_at", got.ID)
	}

	got, err = s.ClaimJob(ctx, "wkr-1", j.RunAt)
	if err != nil {
		t.Fatalf("ClaimJob(at run_at): %v", err)
	}
	if got == nil || got.ID != j.ID {
		t.Fatalf("ClaimJob(at run_at) = %v, want %s", got, j.ID)
	}
}

func testClaimEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()

	done := newJob("done", base)
	done.State = job.StateCompleted
	mustInsert(t, s, done)
	dead := newJob("dead", base)
	dead.State = job.StateDead
	mustInsert(t, s, dead)

	got, err := s.ClaimJob(ctx, "wkr-1", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if got != nil {
		t.Fatalf("ClaimJob = %s, want nil", got.ID)
	}
}

func testClaimConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	const jobs, workers = 20, 5
	now := base.Add(time.Hour)

	for i := 0; i < jobs; i++ {
		mustInsert(t, s, newJob(fmt.Sprintf("echo %d", i), base.Add(time.Duration(i)*time.Millisecond)))
	}

	var (
		mu      sync.Mutex
		claimed = make(map[string]string)
		wg      sync.WaitGroup
		errs    = make(chan error, workers)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				j, err := s.ClaimJob(ctx, workerID, now)
				if err != nil {
					errs <- err
					return
				}
				if j == nil {
					return
				}
				mu.Lock()
				if prev, dup := claimed[j.ID]; dup {
					mu.Unlock()
					errs <- fmt.Errorf("job %s claimed by %s and %s", j.ID, prev, workerID)
					return
				}
				claimed[j.ID] = workerID
				mu.Unlock()
			}
		}(fmt.Sprintf("wkr-%d", w))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("claim: %v", err)
	}
	if len(claimed) != jobs {
		t.Errorf("claimed %d jobs, want %d", len(claimed), jobs)
	}
}

func testUpdateJob(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := newJob("false", base)
	mustInsert(t, s, j)

	claimed, err := s.ClaimJob(ctx, "wkr-1", base.Add(time.Minute))
	if err != nil || claimed == nil {
		t.Fatalf("ClaimJob = %v, %v", claimed, err)
	}

	retryAt := base.Add(2 * time.Minute)
	claimed.Fail("exit status 1", base.Add(time.Minute), func(int) time.Duration { return time.Minute })
	if err := s.UpdateJob(ctx, claimed); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "exit status 1" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if !got.RunAt.Equal(retryAt) {
		t.Errorf("RunAt = %v, want %v", got.RunAt, retryAt)
	}
	if got.HeartbeatAt != nil {
		t.Errorf("HeartbeatAt = %v, want nil", got.HeartbeatAt)
	}
	if !got.UpdatedAt.After(base) {
		t.Errorf("UpdatedAt = %v, want refreshed", got.UpdatedAt)
	}
}

func testUpdateMissing(t *testing.T, s store.Store) {
	err := s.UpdateJob(context.Background(), newJob("true", base))
	if !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Fatalf("UpdateJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func testCountJobsByState(t *testing.T, s store.Store) {
	ctx := context.Background()

	counts, err := s.CountJobsByState(ctx)
	if err != nil {
		t.Fatalf("CountJobsByState(empty): %v", err)
	}
	for _, st := range job.States {
		if n, ok := counts[st]; !ok || n != 0 {
			t.Errorf("empty counts[%s] = %d, %v; want 0, true", st, n, ok)
		}
	}

	want := map[job.State]int64{
		job.StatePending:   3,
		job.StateCompleted: 2,
		job.StateDead:      1,
	}
	for st, n := range want {
		for i := int64(0); i < n; i++ {
			j := newJob("true", base)
			j.State = st
			mustInsert(t, s, j)
		}
	}

	counts, err = s.CountJobsByState(ctx)
	if err != nil {
		t.Fatalf("CountJobsByState: %v", err)
	}
	for _, st := range job.States {
		if counts[st] != want[st] {
			t.Errorf("counts[%s] = %d, want %d", st, counts[st], want[st])
		}
	}
}

func testResetDeadJob(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(time.Hour)

	dead := newJob("false", base)
	dead.State = job.StateDead
	dead.Attempts = 4
	dead.LastError = "exit status 1"
	mustInsert(t, s, dead)

	pending := newJob("true", base)
	mustInsert(t, s, pending)

	if _, err := s.ResetDeadJob(ctx, "missing", now); !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Errorf("ResetDeadJob(missing) = %v, want ErrJobNotFound", err)
	}
	if _, err := s.ResetDeadJob(ctx, pending.ID, now); !errors.Is(err, queuectl.ErrInvalidState) {
		t.Errorf("ResetDeadJob(pending) = %v, want ErrInvalidState", err)
	}

	got, err := s.ResetDeadJob(ctx, dead.ID, now)
	if err != nil {
		t.Fatalf("ResetDeadJob: %v", err)
	}
	if got.State != job.StatePending || got.Attempts != 0 {
		t.Errorf("reset = %s/%d, want pending/0", got.State, got.Attempts)
	}
	if !got.RunAt.Equal(now) {
		t.Errorf("RunAt = %v, want %v", got.RunAt, now)
	}

	stored, err := s.GetJob(ctx, dead.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.State != job.StatePending || stored.Attempts != 0 || stored.LastError != "" {
		t.Errorf("stored = %s/%d/%q, want pending/0/empty", stored.State, stored.Attempts, stored.LastError)
	}

	// A second reset of the same job is rejected.
	if _, err := s.ResetDeadJob(ctx, dead.ID, now); !errors.Is(err, queuectl.ErrInvalidState) {
		t.Errorf("ResetDeadJob(again) = %v, want ErrInvalidState", err)
	}
}

func testResetDeadJobs(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := base.Add(time.Hour)

	n, err := s.ResetDeadJobs(ctx, now)
	if err != nil {
		t.Fatalf("ResetDeadJobs(empty): %v", err)
	}
	if n != 0 {
		t.Errorf("ResetDeadJobs(empty) = %d, want 0", n)
	}

	for i := 0; i < 3; i++ {
		j := newJob("false", base)
		j.State = job.StateDead
		j.Attempts = 4
		mustInsert(t, s, j)
	}
	done := newJob("true", base)
	done.State = job.StateCompleted
	mustInsert(t, s, done)

	n, err = s.ResetDeadJobs(ctx, now)
	if err != nil {
		t.Fatalf("ResetDeadJobs: %v", err)
	}
	if n != 3 {
		t.Errorf("ResetDeadJobs = %d, want 3", n)
	}

	n, err = s.ResetDeadJobs(ctx, now)
	if err != nil {
		t.Fatalf("ResetDeadJobs(again): %v", err)
	}
	if n != 0 {
		t.Errorf("ResetDeadJobs(again) = %d, want 0", n)
	}

	counts, err := s.CountJobsByState(ctx)
	if err != nil {
		t.Fatalf("CountJobsByState: %v", err)
	}
	if counts[job.StatePending] != 3 || counts[job.StateDead] != 0 || counts[job.StateCompleted] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func testHeartbeat(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsert(t, s, newJob("sleep 1", base))

	claimed, err := s.ClaimJob(ctx, "wkr-1", base.Add(time.Minute))
	if err != nil || claimed == nil {
		t.Fatalf("ClaimJob = %v, %v", claimed, err)
	}

	beat := base.Add(2 * time.Minute)
	if err := s.HeartbeatJob(ctx, claimed.ID, "wkr-1", beat); err != nil {
		t.Fatalf("HeartbeatJob: %v", err)
	}
	got, err := s.GetJob(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.HeartbeatAt == nil || !got.HeartbeatAt.Equal(beat) {
		t.Errorf("HeartbeatAt = %v, want %v", got.HeartbeatAt, beat)
	}

	if err := s.HeartbeatJob(ctx, claimed.ID, "wkr-2", beat); !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Errorf("HeartbeatJob(other worker) = %v, want ErrJobNotFound", err)
	}
	if err := s.HeartbeatJob(ctx, "missing", "wkr-1", beat); !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Errorf("HeartbeatJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func testReclaimStaleJobs(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsert(t, s, newJob("stale", base))
	mustInsert(t, s, newJob("fresh", base.Add(time.Second)))

	stale, err := s.ClaimJob(ctx, "wkr-1", base.Add(time.Minute))
	if err != nil || stale == nil {
		t.Fatalf("ClaimJob(stale) = %v, %v", stale, err)
	}
	fresh, err := s.ClaimJob(ctx, "wkr-2", base.Add(10*time.Minute))
	if err != nil || fresh == nil {
		t.Fatalf("ClaimJob(fresh) = %v, %v", fresh, err)
	}

	n, err := s.ReclaimStaleJobs(ctx, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleJobs: %v", err)
	}
	if n != 1 {
		t.Fatalf("ReclaimStaleJobs = %d, want 1", n)
	}

	got, err := s.GetJob(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StatePending || got.WorkerID != "" || got.Attempts != 0 {
		t.Errorf("reclaimed = %s/%q/%d, want pending/empty/0", got.State, got.WorkerID, got.Attempts)
	}

	got, err = s.GetJob(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateProcessing {
		t.Errorf("fresh State = %q, want processing", got.State)
	}
}

func testSettingsSeeded(t *testing.T, s store.Store) {
	v, err := s.GetSetting(context.Background(), settings.KeyMaxRetries)
	if err != nil {
		t.Fatalf("GetSetting(%s): %v", settings.KeyMaxRetries, err)
	}
	if v != "3" {
		t.Errorf("%s = %q, want 3", settings.KeyMaxRetries, v)
	}
}

func testSettingsCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "missing"); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("GetSetting(missing) = %v, want ErrConfigNotFound", err)
	}

	if err := s.SetSetting(ctx, settings.KeyBaseBackoff, "3"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(ctx, settings.KeyBaseBackoff, "1.5"); err != nil {
		t.Fatalf("SetSetting(replace): %v", err)
	}
	v, err := s.GetSetting(ctx, settings.KeyBaseBackoff)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "1.5" {
		t.Errorf("%s = %q, want 1.5", settings.KeyBaseBackoff, v)
	}

	entries, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	want := []settings.Entry{
		{Key: settings.KeyBaseBackoff, Value: "1.5"},
		{Key: settings.KeyMaxRetries, Value: "3"},
	}
	if len(entries) != len(want) {
		t.Fatalf("ListSettings = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %v, want %v", i, entries[i], want[i])
		}
	}

	if err := s.DeleteSetting(ctx, settings.KeyBaseBackoff); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if err := s.DeleteSetting(ctx, settings.KeyBaseBackoff); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("DeleteSetting(again) = %v, want ErrConfigNotFound", err)
	}
	if _, err := s.GetSetting(ctx, settings.KeyBaseBackoff); !errors.Is(err, queuectl.ErrConfigNotFound) {
		t.Errorf("GetSetting(deleted) = %v, want ErrConfigNotFound", err)
	}
}

func jobIDs(jobs []*job.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
