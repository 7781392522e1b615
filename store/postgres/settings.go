package postgres

import (
	"context"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/settings"
)

// GetSetting returns the value for key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM queuectl_config WHERE key = $1`, key).Scan(&value)
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
	rows, err := s.pool.Query(ctx,
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queuectl_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return unavailable("set setting", err)
	}
	return nil
}

// DeleteSetting removes key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM queuectl_config WHERE key = $1`, key)
	if err != nil {
		return unavailable("delete setting", err)
	}
	if tag.RowsAffected() == 0 {
		return queuectl.ErrConfigNotFound
	}
	return nil
}
