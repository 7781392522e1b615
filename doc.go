// Package queuectl provides a durable, single-node background job queue.
// Clients enqueue shell commands; workers claim them through an atomic
// store operation, execute them, and record the outcome with automatic
// retry and dead-lettering.
//
// queuectl is usable both as a library and through the queuectl CLI.
// Open a store, build an engine, enqueue commands, and start workers:
//
//	s, _ := sqlite.New("queue.db")
//	_ = s.Migrate(ctx)
//	eng, _ := engine.New(s, engine.WithLogger(logger))
//	j, _ := eng.Enqueue(ctx, "echo hello", job.WithMaxRetries(2))
//	pool, _ := eng.StartWorkers(ctx, 4)
//	defer pool.Stop(ctx)
//
// # Architecture
//
// Each subsystem (job, settings) defines its own store interface and a
// single backend implements all of them. Backends: SQLite (default),
// PostgreSQL, Redis, MongoDB, and an in-memory store for tests.
//
// # Job lifecycle
//
//	pending -> processing -> completed
//	pending -> processing -> pending (retry, run_at deferred by base^attempts seconds)
//	pending -> processing -> dead
//	dead -> pending (manual DLQ retry only)
//
// The jobs table is the only shared state. Workers hold no in-memory
// ownership; exclusivity comes from the store's claim transaction.
package queuectl
