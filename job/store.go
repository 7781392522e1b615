package job

import (
	"context"
	"time"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for jobs.
type Store interface {
	// InsertJob persists a new job. Zero timestamps default to now and a
	// zero state to pending. Returns queuectl.ErrJobAlreadyExists when the
	// ID is taken.
	InsertJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobsByState returns jobs in state ordered by CreatedAt ascending.
	ListJobsByState(ctx context.Context, state State, opts ListOpts) ([]*Job, error)

	// ListReadyJobs returns up to limit pending jobs with RunAt <= now,
	// ordered by (RunAt, CreatedAt).
	ListReadyJobs(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// ClaimJob atomically moves the oldest ready job to processing, owned
	// by workerID with HeartbeatAt = now, and returns the updated row.
	// Attempts are not changed. Returns nil, nil when no job is ready.
	ClaimJob(ctx context.Context, workerID string, now time.Time) (*Job, error)

	// UpdateJob persists the mutable fields of an existing job and always
	// refreshes UpdatedAt.
	UpdateJob(ctx context.Context, j *Job) error

	// CountJobsByState returns the number of jobs in every state. States
	// without jobs map to zero.
	CountJobsByState(ctx context.Context) (map[State]int64, error)

	// ResetDeadJob moves a single dead job back to pending with zero
	// attempts and RunAt = now. Returns queuectl.ErrJobNotFound or
	// queuectl.ErrInvalidState when the job is missing or not dead.
	ResetDeadJob(ctx context.Context, jobID string, now time.Time) (*Job, error)

	// ResetDeadJobs resets every dead job and returns how many changed.
	ResetDeadJobs(ctx context.Context, now time.Time) (int64, error)

	// HeartbeatJob records that workerID still owns the processing job.
	HeartbeatJob(ctx context.Context, jobID, workerID string, now time.Time) error

	// ReclaimStaleJobs returns processing jobs whose last heartbeat is
	// before cutoff to pending, clearing WorkerID and leaving Attempts
	// unchanged, and returns how many changed.
	ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error)
}

// ZeroCounts returns a count map with every state present.
func ZeroCounts() map[State]int64 {
	m := make(map[State]int64, len(States))
	for _, s := range States {
		m[s] = 0
	}
	return m
}
