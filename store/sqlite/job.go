package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// InsertJob persists a new job.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) error {
	j.ApplyDefaults(time.Now().UTC())
	err := s.withTx(ctx, "insert job", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queuectl_jobs (`+jobColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.ID, j.Command, string(j.State), j.Attempts, j.MaxRetries, j.LastError,
			j.WorkerID, formatTime(j.RunAt), formatTimePtr(j.HeartbeatAt),
			formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
		)
		return err
	})
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM queuectl_jobs WHERE id = ?`, jobID)
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
	limit := -1 // SQLite's "no limit"
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM queuectl_jobs
		WHERE state = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ? OFFSET ?`,
		string(state), limit, opts.Offset,
	)
	if err != nil {
		return nil, unavailable("list jobs by state", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, unavailable("list jobs by state", err)
	}
	return jobs, nil
}

// ListReadyJobs returns pending jobs due at now in claim order.
func (s *Store) ListReadyJobs(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM queuectl_jobs
		WHERE state = 'pending' AND run_at <= ?
		ORDER BY run_at ASC, created_at ASC, rowid ASC
		LIMIT ?`,
		formatTime(now), limit,
	)
	if err != nil {
		return nil, unavailable("list ready jobs", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, unavailable("list ready jobs", err)
	}
	return jobs, nil
}

// ClaimJob atomically claims the oldest ready job. The transaction begins
// IMMEDIATE, so the select and the conditional update both run under the
// database write lock.
func (s *Store) ClaimJob(ctx context.Context, workerID string, now time.Time) (*job.Job, error) {
	var claimed *job.Job
	err := s.withTx(ctx, "claim job", func(tx *sql.Tx) error {
		claimed = nil

		var jobID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM queuectl_jobs
			WHERE state = 'pending' AND run_at <= ?
			ORDER BY run_at ASC, created_at ASC, rowid ASC
			LIMIT 1`,
			formatTime(now),
		).Scan(&jobID)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}

		ts := formatTime(now)
		res, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs
			SET state = 'processing', worker_id = ?, heartbeat_at = ?, updated_at = ?
			WHERE id = ? AND state = 'pending'`,
			workerID, ts, ts, jobID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // driver always returns nil
			return nil
		}

		claimed, err = scanJob(tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM queuectl_jobs WHERE id = ?`, jobID))
		return err
	})
	if err != nil {
		return nil, unavailable("claim job", err)
	}
	return claimed, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = time.Now().UTC()
	err := s.withTx(ctx, "update job", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs
			SET command = ?, state = ?, attempts = ?, max_retries = ?, last_error = ?,
			    worker_id = ?, run_at = ?, heartbeat_at = ?, updated_at = ?
			WHERE id = ?`,
			j.Command, string(j.State), j.Attempts, j.MaxRetries, j.LastError,
			j.WorkerID, formatTime(j.RunAt), formatTimePtr(j.HeartbeatAt), formatTime(j.UpdatedAt),
			j.ID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // driver always returns nil
			return queuectl.ErrJobNotFound
		}
		return nil
	})
	if err != nil {
		if isSentinel(err) {
			return err
		}
		return unavailable("update job", err)
	}
	return nil
}

// CountJobsByState returns per-state job counts.
func (s *Store) CountJobsByState(ctx context.Context) (map[job.State]int64, error) {
	rows, err := s.db.QueryContext(ctx,
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

// ResetDeadJob moves one dead job back to pending.
func (s *Store) ResetDeadJob(ctx context.Context, jobID string, now time.Time) (*job.Job, error) {
	var reset *job.Job
	err := s.withTx(ctx, "reset dead job", func(tx *sql.Tx) error {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM queuectl_jobs WHERE id = ?`, jobID).Scan(&state)
		if isNoRows(err) {
			return queuectl.ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if job.State(state) != job.StateDead {
			return queuectl.ErrInvalidState
		}

		ts := formatTime(now)
		if _, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs
			SET state = 'pending', attempts = 0, last_error = '', worker_id = '',
			    heartbeat_at = NULL, run_at = ?, updated_at = ?
			WHERE id = ? AND state = 'dead'`,
			ts, ts, jobID,
		); err != nil {
			return err
		}

		reset, err = scanJob(tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM queuectl_jobs WHERE id = ?`, jobID))
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
	var n int64
	err := s.withTx(ctx, "reset dead jobs", func(tx *sql.Tx) error {
		ts := formatTime(now)
		res, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs
			SET state = 'pending', attempts = 0, last_error = '', worker_id = '',
			    heartbeat_at = NULL, run_at = ?, updated_at = ?
			WHERE state = 'dead'`,
			ts, ts,
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, unavailable("reset dead jobs", err)
	}
	return n, nil
}

// HeartbeatJob updates the heartbeat timestamp for a processing job.
func (s *Store) HeartbeatJob(ctx context.Context, jobID, workerID string, now time.Time) error {
	err := s.withTx(ctx, "heartbeat job", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs SET heartbeat_at = ?
			WHERE id = ? AND worker_id = ? AND state = 'processing'`,
			formatTime(now), jobID, workerID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // driver always returns nil
			return queuectl.ErrJobNotFound
		}
		return nil
	})
	if err != nil {
		if isSentinel(err) {
			return err
		}
		return unavailable("heartbeat job", err)
	}
	return nil
}

// ReclaimStaleJobs returns processing jobs whose last heartbeat is older
// than cutoff to pending.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.withTx(ctx, "reclaim stale jobs", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE queuectl_jobs
			SET state = 'pending', worker_id = '', heartbeat_at = NULL, updated_at = ?
			WHERE state = 'processing'
			  AND heartbeat_at IS NOT NULL
			  AND heartbeat_at < ?`,
			formatTime(time.Now()), formatTime(cutoff),
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, unavailable("reclaim stale jobs", err)
	}
	return n, nil
}
