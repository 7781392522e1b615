package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/KarthikHK-01/queuectl"
)

// migration is one forward-only schema step, applied in its own
// transaction and recorded in queuectl_migrations.
type migration struct {
	Name    string
	Version string
	Up      func(ctx context.Context, tx *sql.Tx) error
}

// Migrations is the ordered migration list for the sqlite store.
var Migrations = []migration{
	// 001: Create jobs table and indexes.
	{
		Name:    "create_jobs_table",
		Version: "20250101120000",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS queuectl_jobs (
				id           TEXT PRIMARY KEY,
				command      TEXT NOT NULL,
				state        TEXT NOT NULL DEFAULT 'pending'
					CHECK (state IN ('pending', 'processing', 'completed', 'failed', 'dead')),
				attempts     INTEGER NOT NULL DEFAULT 0,
				max_retries  INTEGER NOT NULL DEFAULT 3,
				last_error   TEXT NOT NULL DEFAULT '',
				worker_id    TEXT NOT NULL DEFAULT '',
				run_at       TEXT NOT NULL,
				heartbeat_at TEXT,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_queuectl_jobs_ready
				ON queuectl_jobs (run_at, created_at)
				WHERE state = 'pending'`,
			`CREATE INDEX IF NOT EXISTS idx_queuectl_jobs_state
				ON queuectl_jobs (state, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_queuectl_jobs_heartbeat
				ON queuectl_jobs (heartbeat_at)
				WHERE state = 'processing'`,
		),
	},

	// 002: Create config table and seed defaults.
	{
		Name:    "create_config_table",
		Version: "20250101120001",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS queuectl_config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`INSERT OR IGNORE INTO queuectl_config (key, value) VALUES ('max_retries', '3')`,
		),
	},
}

func execAll(stmts ...string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrate applies every migration not yet recorded. It is safe to call
// from several processes at once: each step runs under the write lock and
// re-checks whether it was applied.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS queuectl_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("queuectl/sqlite: %w: create migrations table: %w", queuectl.ErrMigrationFailed, err)
	}

	for _, m := range Migrations {
		applied := false
		err := s.withTx(ctx, "migrate", func(tx *sql.Tx) error {
			var n int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM queuectl_migrations WHERE version = ?`, m.Version,
			).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO queuectl_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.Version, m.Name, formatTime(time.Now()),
			)
			applied = err == nil
			return err
		})
		if err != nil {
			return fmt.Errorf("queuectl/sqlite: %w: %s: %w", queuectl.ErrMigrationFailed, m.Name, err)
		}
		if applied {
			s.logger.Info("applied migration",
				slog.String("version", m.Version),
				slog.String("name", m.Name),
			)
		}
	}
	return nil
}
