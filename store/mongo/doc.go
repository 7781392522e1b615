// Package mongo implements store.Store on MongoDB using the official v2
// driver.
//
// Jobs live in one collection keyed by ID. A claim is a single
// FindOneAndUpdate that matches a ready pending job and flips it to
// processing, so the document-level atomicity of MongoDB guarantees one
// owner per job. Ties on (run_at, created_at) fall back to _id order.
//
//	s, err := mongo.New(ctx, "mongodb://localhost:27017/queuectl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The database name is taken from the URI path and defaults to "queuectl".
package mongo
