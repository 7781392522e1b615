// Package sqlite implements store.Store on a single SQLite file using
// database/sql and mattn/go-sqlite3. It is the default backend for the
// queuectl CLI: every worker process opens the same file, and WAL mode
// lets readers proceed while one writer holds the lock.
//
// Every write transaction starts with BEGIN IMMEDIATE, so the claim's
// select and update run under the database write lock and two processes
// never claim the same job. Lock contention surfaces as SQLITE_BUSY and is
// retried a bounded number of times before the operation fails with
// queuectl.ErrStoreUnavailable.
//
//	s, err := sqlite.New("queuectl.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package sqlite
