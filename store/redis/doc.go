// Package redis implements store.Store on a single Redis node.
//
// Each job is a Hash. Secondary indexes are Sorted Sets: one per state
// scored by creation time for listing and counting, a ready set scored by
// run_at for claims, and a processing set scored by heartbeat for lease
// reclaim. Every state change runs as a Lua script that rewrites the hash
// and its indexes together, so the claim is atomic across any number of
// worker processes.
//
// Ready jobs with the same run_at microsecond are claimed by created_at,
// then by an insertion sequence taken from an INCR counter on insert.
//
//	s, err := redisstore.NewFromURL("redis://localhost:6379/0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
package redis
