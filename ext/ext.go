// Package ext defines the extension system for queuectl.
// Extensions are notified of lifecycle events (job enqueued, completed,
// dead-lettered, etc.) and can react to them: logging, metrics, auditing.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/KarthikHK-01/queuectl/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker has claimed a job and is about to
// run its command.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job's command exits successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a job fails but is rescheduled.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, err error, nextRunAt time.Time) error
}

// JobDead is called when a job exhausts its retries and moves to dead.
type JobDead interface {
	OnJobDead(ctx context.Context, j *job.Job, err error) error
}

// JobRetried is called when a dead job is manually returned to pending.
type JobRetried interface {
	OnJobRetried(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// JobsReclaimed is called when processing jobs with an expired heartbeat
// were returned to pending.
type JobsReclaimed interface {
	OnJobsReclaimed(ctx context.Context, count int64) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
