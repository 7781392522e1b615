package redis

import (
	"context"
	"errors"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/settings"
)

// GetSetting returns the value for key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.configKey(), key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", queuectl.ErrConfigNotFound
		}
		return "", unavailable("get setting", err)
	}
	return v, nil
}

// ListSettings returns every entry ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]settings.Entry, error) {
	vals, err := s.client.HGetAll(ctx, s.configKey()).Result()
	if err != nil {
		return nil, unavailable("list settings", err)
	}
	entries := make([]settings.Entry, 0, len(vals))
	for k, v := range vals {
		entries = append(entries, settings.Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// SetSetting inserts or replaces the value for key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.configKey(), key, value).Err(); err != nil {
		return unavailable("set setting", err)
	}
	return nil
}

// DeleteSetting removes key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	n, err := s.client.HDel(ctx, s.configKey(), key).Result()
	if err != nil {
		return unavailable("delete setting", err)
	}
	if n == 0 {
		return queuectl.ErrConfigNotFound
	}
	return nil
}
