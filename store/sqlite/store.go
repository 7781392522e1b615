package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store      = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

const (
	defaultBusyRetries = 5
	busyRetryStep      = 50 * time.Millisecond
)

// Store is a database/sql implementation of store.Store on SQLite.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	busyRetries int
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBusyRetries sets how many times a write blocked by another process
// is retried before giving up.
func WithBusyRetries(n int) Option {
	return func(s *Store) {
		s.busyRetries = n
	}
}

// New opens the SQLite database at path, creating the file if needed.
// The Store owns the connection pool and closes it on Close.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("queuectl/sqlite: open %s: %w", path, err)
	}
	s := &Store{
		db:          db,
		logger:      slog.Default(),
		busyRetries: defaultBusyRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dsn adds the connection parameters every queuectl process must share:
// WAL journaling, a busy timeout, and immediate write transactions.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a write transaction, retrying when the database is
// locked by another connection. fn must be safe to run more than once.
func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isBusy(err) || attempt >= s.busyRetries {
			break
		}
		s.logger.Debug("sqlite busy, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * busyRetryStep):
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ── helpers ──────────────────────────────────────────────────────

// unavailable wraps a driver error so callers can match it with
// queuectl.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("queuectl/sqlite: %s: %w: %w", op, queuectl.ErrStoreUnavailable, err)
}

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks if a SQLite error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isBusy reports whether err is lock contention worth retrying.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// isSentinel reports whether err already carries a queuectl sentinel and
// must be returned as-is rather than wrapped as a store failure.
func isSentinel(err error) bool {
	return errors.Is(err, queuectl.ErrJobNotFound) ||
		errors.Is(err, queuectl.ErrInvalidState) ||
		errors.Is(err, queuectl.ErrConfigNotFound)
}
