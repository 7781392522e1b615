// Package store defines the aggregate persistence interface.
//
// Each subsystem (job, settings) defines its own store interface. The
// composite [Store] composes them. A single backend need only implement
// Store to satisfy every subsystem's persistence contract.
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/sqlite: SQLite file backend, the CLI default
//   - store/postgres: PostgreSQL backend using pgx/v5
//   - store/redis: Redis backend using go-redis/v9 and Lua claims
//   - store/mongo: MongoDB backend using the official v2 driver
//
// Every backend is checked against the same behavioural contract in
// store/storetest.
//
// # Usage
//
//	s, err := sqlite.New("queuectl.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Claiming
//
// ClaimJob is the only operation that moves a job into processing. Each
// backend makes it atomic with its native primitive: a write transaction
// in SQLite, FOR UPDATE SKIP LOCKED in Postgres, a Lua script in Redis,
// and FindOneAndUpdate in MongoDB. Two concurrent claims never return
// the same job.
package store
