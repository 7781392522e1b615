// Package memory implements store.Store entirely in process memory.
// It is safe for concurrent access and intended for unit tests and
// development; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
)

// Ensure Store implements every subsystem store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ job.Store      = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

// entry pairs a job with its insertion sequence, which breaks ordering
// ties between jobs created at the same instant.
type entry struct {
	job *job.Job
	seq uint64
}

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	jobs     map[string]*entry
	seq      uint64
	settings map[string]string
	closed   bool
}

// New returns a new Store seeded like a freshly migrated database.
func New() *Store {
	return &Store{
		jobs: make(map[string]*entry),
		settings: map[string]string{
			settings.KeyMaxRetries: "3",
		},
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}
	return nil
}

// Close marks the store unavailable. Later calls fail with
// queuectl.ErrStoreUnavailable, which lets tests simulate an outage.
func (m *Store) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// InsertJob persists a new job.
func (m *Store) InsertJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}

	if _, exists := m.jobs[j.ID]; exists {
		return queuectl.ErrJobAlreadyExists
	}
	j.ApplyDefaults(time.Now().UTC())
	m.seq++
	m.jobs[j.ID] = &entry{job: clone(j), seq: m.seq}
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	e, ok := m.jobs[jobID]
	if !ok {
		return nil, queuectl.ErrJobNotFound
	}
	return clone(e.job), nil
}

// ListJobsByState returns jobs in state ordered by CreatedAt.
func (m *Store) ListJobsByState(_ context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	matched := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		if e.job.State == state {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, k int) bool {
		a, b := matched[i], matched[k]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.Before(b.job.CreatedAt)
		}
		return a.seq < b.seq
	})

	return page(matched, opts), nil
}

// ListReadyJobs returns pending jobs due at now ordered by (RunAt, CreatedAt).
func (m *Store) ListReadyJobs(_ context.Context, now time.Time, limit int) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	return page(m.ready(now), job.ListOpts{Limit: limit}), nil
}

// ClaimJob moves the oldest ready job to processing under the write lock.
func (m *Store) ClaimJob(_ context.Context, workerID string, now time.Time) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	ready := m.ready(now)
	if len(ready) == 0 {
		return nil, nil //nolint:nilnil // no job ready
	}

	j := ready[0].job
	t := now.UTC()
	j.State = job.StateProcessing
	j.WorkerID = workerID
	j.HeartbeatAt = &t
	j.UpdatedAt = t

	// Return a copy so callers can mutate without racing with the store.
	return clone(j), nil
}

// UpdateJob persists the mutable fields of an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}

	e, ok := m.jobs[j.ID]
	if !ok {
		return queuectl.ErrJobNotFound
	}
	cur := e.job
	cur.Command = j.Command
	cur.State = j.State
	cur.Attempts = j.Attempts
	cur.MaxRetries = j.MaxRetries
	cur.RunAt = j.RunAt
	cur.LastError = j.LastError
	cur.WorkerID = j.WorkerID
	cur.HeartbeatAt = copyTime(j.HeartbeatAt)
	cur.UpdatedAt = time.Now().UTC()
	j.UpdatedAt = cur.UpdatedAt
	return nil
}

// CountJobsByState returns per-state job counts.
func (m *Store) CountJobsByState(_ context.Context) (map[job.State]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	counts := job.ZeroCounts()
	for _, e := range m.jobs {
		counts[e.job.State]++
	}
	return counts, nil
}

// ResetDeadJob moves one dead job back to pending.
func (m *Store) ResetDeadJob(_ context.Context, jobID string, now time.Time) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	e, ok := m.jobs[jobID]
	if !ok {
		return nil, queuectl.ErrJobNotFound
	}
	if e.job.State != job.StateDead {
		return nil, queuectl.ErrInvalidState
	}
	resetDead(e.job, now)
	return clone(e.job), nil
}

// ResetDeadJobs moves every dead job back to pending.
func (m *Store) ResetDeadJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, queuectl.ErrStoreUnavailable
	}

	var n int64
	for _, e := range m.jobs {
		if e.job.State == job.StateDead {
			resetDead(e.job, now)
			n++
		}
	}
	return n, nil
}

// HeartbeatJob refreshes the heartbeat of a job still owned by workerID.
func (m *Store) HeartbeatJob(_ context.Context, jobID, workerID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}

	e, ok := m.jobs[jobID]
	if !ok || e.job.State != job.StateProcessing || e.job.WorkerID != workerID {
		return queuectl.ErrJobNotFound
	}
	t := now.UTC()
	e.job.HeartbeatAt = &t
	return nil
}

// ReclaimStaleJobs returns processing jobs with an expired heartbeat to pending.
func (m *Store) ReclaimStaleJobs(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, queuectl.ErrStoreUnavailable
	}

	now := time.Now().UTC()
	var n int64
	for _, e := range m.jobs {
		j := e.job
		if j.State != job.StateProcessing || j.HeartbeatAt == nil || !j.HeartbeatAt.Before(cutoff) {
			continue
		}
		j.State = job.StatePending
		j.WorkerID = ""
		j.HeartbeatAt = nil
		j.UpdatedAt = now
		n++
	}
	return n, nil
}

// ready returns pending jobs due at now, oldest first. Callers hold mu.
func (m *Store) ready(now time.Time) []*entry {
	result := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		if e.job.Ready(now) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		a, b := result[i].job, result[k].job
		if !a.RunAt.Equal(b.RunAt) {
			return a.RunAt.Before(b.RunAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return result[i].seq < result[k].seq
	})
	return result
}

func resetDead(j *job.Job, now time.Time) {
	t := now.UTC()
	j.State = job.StatePending
	j.Attempts = 0
	j.RunAt = t
	j.LastError = ""
	j.WorkerID = ""
	j.HeartbeatAt = nil
	j.UpdatedAt = t
}

// clone returns a copy of j that shares no pointers with it.
func clone(j *job.Job) *job.Job {
	cp := *j
	cp.HeartbeatAt = copyTime(j.HeartbeatAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// page copies the entries selected by opts.
func page(entries []*entry, opts job.ListOpts) []*job.Job {
	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []*job.Job{}
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	out := make([]*job.Job, len(entries))
	for i, e := range entries {
		out[i] = clone(e.job)
	}
	return out
}

// ──────────────────────────────────────────────────
// Settings Store
// ──────────────────────────────────────────────────

// GetSetting returns the value for key.
func (m *Store) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", queuectl.ErrStoreUnavailable
	}

	v, ok := m.settings[key]
	if !ok {
		return "", queuectl.ErrConfigNotFound
	}
	return v, nil
}

// ListSettings returns every entry ordered by key.
func (m *Store) ListSettings(_ context.Context) ([]settings.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, queuectl.ErrStoreUnavailable
	}

	out := make([]settings.Entry, 0, len(m.settings))
	for k, v := range m.settings {
		out = append(out, settings.Entry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out, nil
}

// SetSetting inserts or replaces the value for key.
func (m *Store) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}

	m.settings[key] = value
	return nil
}

// DeleteSetting removes key.
func (m *Store) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return queuectl.ErrStoreUnavailable
	}

	if _, ok := m.settings[key]; !ok {
		return queuectl.ErrConfigNotFound
	}
	delete(m.settings, key)
	return nil
}
