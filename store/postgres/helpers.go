package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/KarthikHK-01/queuectl"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isDuplicateKey checks if a PostgreSQL error is a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isSerialization reports a serialization_failure (40001) or
// deadlock_detected (40P01), both safe to retry.
func isSerialization(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// unavailable wraps a driver error so callers can match it with
// queuectl.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("queuectl/postgres: %s: %w: %w", op, queuectl.ErrStoreUnavailable, err)
}

// isSentinel reports whether err already carries a queuectl sentinel and
// must be returned as-is rather than wrapped as a store failure.
func isSentinel(err error) bool {
	return errors.Is(err, queuectl.ErrJobNotFound) ||
		errors.Is(err, queuectl.ErrInvalidState) ||
		errors.Is(err, queuectl.ErrConfigNotFound)
}
