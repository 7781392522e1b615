package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
)

// Collection name constants.
const (
	colJobs   = "queuectl_jobs"
	colConfig = "queuectl_config"
)

const defaultDatabase = "queuectl"

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store      = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store.
type Store struct {
	client *mongod.Client
	db     *mongod.Database
	logger *slog.Logger
	dbName string
	owned  bool
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDatabase overrides the database name taken from the URI.
func WithDatabase(name string) Option {
	return func(s *Store) {
		s.dbName = name
	}
}

// New connects to the MongoDB deployment at uri. The Store owns the client
// and disconnects it on Close.
func New(ctx context.Context, uri string, opts ...Option) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("connect", err)
	}
	s := NewFromClient(client, append([]Option{WithDatabase(databaseFromURI(uri))}, opts...)...)
	s.owned = true
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewFromClient creates a store on an existing client. The caller owns
// the client lifecycle.
func NewFromClient(client *mongod.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: slog.Default(),
		dbName: defaultDatabase,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.db = client.Database(s.dbName)
	return s
}

// databaseFromURI returns the path component of a mongodb:// URI, or the
// default database when there is none.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabase
}

// Database returns the underlying *mongo.Database for advanced usage.
func (s *Store) Database() *mongod.Database {
	return s.db
}

// Migrate creates indexes and seeds default settings.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("queuectl/mongo: %w: %s indexes: %w", queuectl.ErrMigrationFailed, col, err)
		}
	}

	_, err := s.db.Collection(colConfig).UpdateOne(ctx,
		bson.M{"_id": settings.KeyMaxRetries},
		bson.M{"$setOnInsert": bson.M{"value": "3"}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("queuectl/mongo: %w: seed config: %w", queuectl.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close disconnects the client when the Store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return mongod.IsDuplicateKeyError(err) ||
		strings.Contains(err.Error(), "E11000")
}

// unavailable wraps a driver error so callers can match it with
// queuectl.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("queuectl/mongo: %s: %w: %w", op, queuectl.ErrStoreUnavailable, err)
}

// migrationIndexes returns the index definitions for all queuectl collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colJobs: {
			// Claim index: state + run_at + created_at.
			{Keys: bson.D{
				{Key: "state", Value: 1},
				{Key: "run_at", Value: 1},
				{Key: "created_at", Value: 1},
			}},
			// Listing index.
			{Keys: bson.D{
				{Key: "state", Value: 1},
				{Key: "created_at", Value: 1},
			}},
			// Heartbeat index for reclaiming stale jobs.
			{Keys: bson.D{
				{Key: "state", Value: 1},
				{Key: "heartbeat_at", Value: 1},
			}},
		},
	}
}
