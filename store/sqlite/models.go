package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/KarthikHK-01/queuectl/job"
)

// timeLayout is fixed-width so that TEXT comparison in SQL orders
// timestamps chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// jobColumns is the column list every job query selects, in scan order.
const jobColumns = `id, command, state, attempts, max_retries, last_error,
	worker_id, run_at, heartbeat_at, created_at, updated_at`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var (
		j                           job.Job
		state                       string
		runAt, createdAt, updatedAt string
		heartbeatAt                 sql.NullString
	)
	if err := row.Scan(
		&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries, &j.LastError,
		&j.WorkerID, &runAt, &heartbeatAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	j.State = job.State(state)

	var err error
	if j.RunAt, err = parseTime(runAt); err != nil {
		return nil, fmt.Errorf("parse run_at %q: %w", runAt, err)
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	if heartbeatAt.Valid {
		hb, err := parseTime(heartbeatAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse heartbeat_at %q: %w", heartbeatAt.String, err)
		}
		j.HeartbeatAt = &hb
	}
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*job.Job, error) {
	defer rows.Close()
	jobs := make([]*job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
