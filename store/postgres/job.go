package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// maxTxRetries bounds retries of a transaction aborted by a deadlock or
// serialization failure.
const maxTxRetries = 3

const jobColumns = `id, command, state, attempts, max_retries, last_error,
	worker_id, run_at, heartbeat_at, created_at, updated_at`

// InsertJob persists a new job.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) error {
	j.ApplyDefaults(time.Now().UTC())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queuectl_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, j.Command, string(j.State), j.Attempts, j.MaxRetries, j.LastError,
		j.WorkerID, j.RunAt, j.HeartbeatAt, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return queuectl.ErrJobAlreadyExists
		}
		return unavailable("insert job", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM queuectl_jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, queuectl.ErrJobNotFound
		}
		return nil, unavailable("get job", err)
	}
	return j, nil
}

// ListJobsByState returns jobs matching the given state.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM queuectl_jobs
		WHERE state = $1
		ORDER BY created_at ASC, seq ASC
		LIMIT $2 OFFSET $3`,
		string(state), limit, opts.Offset,
	)
	if err != nil {
		return nil, unavailable("list jobs by state", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListReadyJobs returns pending jobs due at now in claim order.
func (s *Store) ListReadyJobs(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM queuectl_jobs
		WHERE state = 'pending' AND run_at <= $1
		ORDER BY run_at ASC, created_at ASC, seq ASC
		LIMIT $2`,
		now, lim,
	)
	if err != nil {
		return nil, unavailable("list ready jobs", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ClaimJob atomically claims the oldest ready job. Uses SELECT FOR UPDATE
// SKIP LOCKED so concurrent claimers each lock a different row.
func (s *Store) ClaimJob(ctx context.Context, workerID string, now time.Time) (*job.Job, error) {
	var (
		j   *job.Job
		err error
	)
	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		row := s.pool.QueryRow(ctx, `
			UPDATE queuectl_jobs
			SET state = 'processing', worker_id = $1, heartbeat_at = $2, updated_at = $2
			WHERE state = 'pending' AND id = (
				SELECT id FROM queuectl_jobs
				WHERE state = 'pending' AND run_at <= $2
				ORDER BY run_at ASC, created_at ASC, seq ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING `+jobColumns,
			workerID, now,
		)
		j, err = scanJob(row)
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // no job ready
		}
		if err == nil || !isSerialization(err) {
			break
		}
		s.logger.Debug("claim aborted, retrying",
			slog.String("worker_id", workerID),
			slog.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return nil, unavailable("claim job", err)
	}
	return j, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs SET
			command = $2, state = $3, attempts = $4, max_retries = $5,
			last_error = $6, worker_id = $7, run_at = $8, heartbeat_at = $9,
			updated_at = $10
		WHERE id = $1`,
		j.ID, j.Command, string(j.State), j.Attempts, j.MaxRetries,
		j.LastError, j.WorkerID, j.RunAt, j.HeartbeatAt,
		j.UpdatedAt,
	)
	if err != nil {
		return unavailable("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// CountJobsByState returns per-state job counts.
func (s *Store) CountJobsByState(ctx context.Context) (map[job.State]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state, COUNT(*) FROM queuectl_jobs GROUP BY state`)
	if err != nil {
		return nil, unavailable("count jobs", err)
	}
	defer rows.Close()

	counts := job.ZeroCounts()
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, unavailable("count jobs", err)
		}
		counts[job.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count jobs", err)
	}
	return counts, nil
}

// ResetDeadJob moves one dead job back to pending. The row is locked
// first so the state check and the update see the same version.
func (s *Store) ResetDeadJob(ctx context.Context, jobID string, now time.Time) (*job.Job, error) {
	var reset *job.Job
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var state string
		err := tx.QueryRow(ctx,
			`SELECT state FROM queuectl_jobs WHERE id = $1 FOR UPDATE`, jobID,
		).Scan(&state)
		if isNoRows(err) {
			return queuectl.ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if job.State(state) != job.StateDead {
			return queuectl.ErrInvalidState
		}

		reset, err = scanJob(tx.QueryRow(ctx, `
			UPDATE queuectl_jobs
			SET state = 'pending', attempts = 0, last_error = '', worker_id = '',
			    heartbeat_at = NULL, run_at = $2, updated_at = $2
			WHERE id = $1
			RETURNING `+jobColumns,
			jobID, now,
		))
		return err
	})
	if err != nil {
		if isSentinel(err) {
			return nil, err
		}
		return nil, unavailable("reset dead job", err)
	}
	return reset, nil
}

// ResetDeadJobs moves every dead job back to pending.
func (s *Store) ResetDeadJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs
		SET state = 'pending', attempts = 0, last_error = '', worker_id = '',
		    heartbeat_at = NULL, run_at = $1, updated_at = $1
		WHERE state = 'dead'`,
		now,
	)
	if err != nil {
		return 0, unavailable("reset dead jobs", err)
	}
	return tag.RowsAffected(), nil
}

// HeartbeatJob updates the heartbeat timestamp for a processing job.
func (s *Store) HeartbeatJob(ctx context.Context, jobID, workerID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs SET heartbeat_at = $3
		WHERE id = $1 AND worker_id = $2 AND state = 'processing'`,
		jobID, workerID, now,
	)
	if err != nil {
		return unavailable("heartbeat job", err)
	}
	if tag.RowsAffected() == 0 {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// ReclaimStaleJobs returns processing jobs whose last heartbeat is older
// than cutoff to pending.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs
		SET state = 'pending', worker_id = '', heartbeat_at = NULL, updated_at = NOW()
		WHERE state = 'processing'
		  AND heartbeat_at IS NOT NULL
		  AND heartbeat_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, unavailable("reclaim stale jobs", err)
	}
	return tag.RowsAffected(), nil
}

// ── scan helpers ─────────────────────────────────────────────────

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j     job.Job
		state string
	)
	err := row.Scan(
		&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries, &j.LastError,
		&j.WorkerID, &j.RunAt, &j.HeartbeatAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.State = job.State(state)
	j.RunAt = j.RunAt.UTC()
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	if j.HeartbeatAt != nil {
		hb := j.HeartbeatAt.UTC()
		j.HeartbeatAt = &hb
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, unavailable("scan job row", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate job rows", err)
	}
	return jobs, nil
}
