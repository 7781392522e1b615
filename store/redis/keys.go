package redis

// Redis key naming conventions for queuectl data.
// All keys share the store prefix ("queuectl:" by default) to avoid collisions.

const defaultKeyPrefix = "queuectl:"

// jobKey returns the key for a job hash: {prefix}job:{id}
func (s *Store) jobKey(id string) string { return s.prefix + "job:" + id }

// configKey is the Hash holding the durable settings.
func (s *Store) configKey() string { return s.prefix + "config" }

// readyKey is the Sorted Set of pending job IDs scored by run_at.
func (s *Store) readyKey() string { return s.prefix + "ready" }

// processingKey is the Sorted Set of processing job IDs scored by heartbeat.
func (s *Store) processingKey() string { return s.prefix + "processing" }

// stateKey returns the Sorted Set of job IDs in a state, scored by created_at.
func (s *Store) stateKey(state string) string { return s.prefix + "state:" + state }
