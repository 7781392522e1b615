// Package store defines the aggregate persistence interface. Each subsystem
// (job, settings) defines its own store interface. The composite Store
// composes them. Backends: SQLite, Postgres, Redis, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/settings"
)

// Store is the aggregate persistence interface.
// A single backend (sqlite, postgres, etc.) implements all of it.
type Store interface {
	job.Store
	settings.Store

	// Migrate runs all schema migrations and seeds default settings.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
