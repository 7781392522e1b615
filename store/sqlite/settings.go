package sqlite

import (
	"context"
	"database/sql"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/settings"
)

// GetSetting returns the value for key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM queuectl_config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", queuectl.ErrConfigNotFound
		}
		return "", unavailable("get setting", err)
	}
	return value, nil
}

// ListSettings returns every entry ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]settings.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM queuectl_config ORDER BY key ASC`)
	if err != nil {
		return nil, unavailable("list settings", err)
	}
	defer rows.Close()

	entries := make([]settings.Entry, 0)
	for rows.Next() {
		var e settings.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, unavailable("list settings", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list settings", err)
	}
	return entries, nil
}

// SetSetting inserts or replaces the value for key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	err := s.withTx(ctx, "set setting", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queuectl_config (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		return err
	})
	if err != nil {
		return unavailable("set setting", err)
	}
	return nil
}

// DeleteSetting removes key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	err := s.withTx(ctx, "delete setting", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM queuectl_config WHERE key = ?`, key)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // driver always returns nil
			return queuectl.ErrConfigNotFound
		}
		return nil
	})
	if err != nil {
		if isSentinel(err) {
			return err
		}
		return unavailable("delete setting", err)
	}
	return nil
}
