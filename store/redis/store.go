package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
)

// Compile-time interface checks.
var (
	_ job.Store      = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeyPrefix namespaces every key. Useful for sharing one Redis
// database between environments or tests.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
	owned  bool
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default(), prefix: defaultKeyPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFromURL connects to the Redis server at url, e.g.
// "redis://localhost:6379/0". The returned Store closes the client on Close.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse url: %w", err)
	}
	s := New(redis.NewClient(o), opts...)
	s.owned = true
	return s, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.UniversalClient { return s.client }

// Migrate seeds default settings. Redis needs no schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.HSetNX(ctx, s.configKey(), settings.KeyMaxRetries, "3").Err(); err != nil {
		return fmt.Errorf("queuectl/redis: %w: seed config: %w", queuectl.ErrMigrationFailed, err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the client when the Store created it.
func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

// unavailable wraps a client error so callers can match it with
// queuectl.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("queuectl/redis: %s: %w: %w", op, queuectl.ErrStoreUnavailable, err)
}
