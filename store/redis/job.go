package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// InsertJob stores the job hash and indexes it in one script call.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) error {
	j.ApplyDefaults(time.Now().UTC())

	args := []interface{}{s.prefix, j.ID, "insert"}
	args = append(args, jobFields(j, true)...)
	code, err := saveScript.Run(ctx, s.client, []string{s.jobKey(j.ID)}, args...).Int()
	if err != nil {
		return unavailable("insert job", err)
	}
	if code == codeExists {
		return queuectl.ErrJobAlreadyExists
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, s.jobKey(jobID)).Result()
	if err != nil {
		return nil, unavailable("get job", err)
	}
	if len(vals) == 0 {
		return nil, queuectl.ErrJobNotFound
	}
	return mapToJob(vals)
}

// ListJobsByState returns jobs in state ordered by creation time.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	start := int64(opts.Offset)
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}
	ids, err := s.client.ZRange(ctx, s.stateKey(string(state)), start, stop).Result()
	if err != nil {
		return nil, unavailable("list jobs by state", err)
	}
	return s.getJobs(ctx, ids)
}

// ListReadyJobs returns pending jobs due at now in claim order.
func (s *Store) ListReadyJobs(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	ids, err := listReadyScript.Run(ctx, s.client,
		[]string{s.readyKey()},
		s.prefix, micros(now), limit,
	).StringSlice()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, unavailable("list ready jobs", err)
	}
	return s.getJobs(ctx, ids)
}

// ClaimJob atomically claims the ready job with the earliest (run_at,
// created_at, insertion sequence).
func (s *Store) ClaimJob(ctx context.Context, workerID string, now time.Time) (*job.Job, error) {
	res, err := claimScript.Run(ctx, s.client,
		[]string{s.readyKey()},
		s.prefix, micros(now), workerID, formatTime(now),
	).Slice()
	if errors.Is(err, goredis.Nil) {
		return nil, nil //nolint:nilnil // no job ready
	}
	if err != nil {
		return nil, unavailable("claim job", err)
	}
	return mapToJob(sliceToMap(res))
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = time.Now().UTC()

	args := []interface{}{s.prefix, j.ID, "update"}
	args = append(args, jobFields(j, false)...)
	code, err := saveScript.Run(ctx, s.client, []string{s.jobKey(j.ID)}, args...).Int()
	if err != nil {
		return unavailable("update job", err)
	}
	if code == codeNotFound {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// CountJobsByState returns per-state job counts.
func (s *Store) CountJobsByState(ctx context.Context) (map[job.State]int64, error) {
	pipe := s.client.Pipeline()
	cmds := make(map[job.State]*goredis.IntCmd, len(job.States))
	for _, st := range job.States {
		cmds[st] = pipe.ZCard(ctx, s.stateKey(string(st)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("count jobs", err)
	}

	counts := job.ZeroCounts()
	for st, cmd := range cmds {
		counts[st] = cmd.Val()
	}
	return counts, nil
}

// ResetDeadJob moves one dead job back to pending.
func (s *Store) ResetDeadJob(ctx context.Context, jobID string, now time.Time) (*job.Job, error) {
	res, err := resetDeadScript.Run(ctx, s.client,
		[]string{s.jobKey(jobID)},
		s.prefix, jobID, formatTime(now), micros(now),
	).Result()
	if err != nil {
		return nil, unavailable("reset dead job", err)
	}
	switch v := res.(type) {
	case int64:
		if v == codeNotFound {
			return nil, queuectl.ErrJobNotFound
		}
		return nil, queuectl.ErrInvalidState
	case []interface{}:
		return mapToJob(sliceToMap(v))
	default:
		return nil, fmt.Errorf("queuectl/redis: reset dead job: unexpected reply %T", res)
	}
}

// ResetDeadJobs moves every dead job back to pending.
func (s *Store) ResetDeadJobs(ctx context.Context, now time.Time) (int64, error) {
	n, err := resetAllDeadScript.Run(ctx, s.client,
		[]string{s.stateKey(string(job.StateDead))},
		s.prefix, formatTime(now), micros(now),
	).Int64()
	if err != nil {
		return 0, unavailable("reset dead jobs", err)
	}
	return n, nil
}

// HeartbeatJob updates the heartbeat timestamp for a processing job.
func (s *Store) HeartbeatJob(ctx context.Context, jobID, workerID string, now time.Time) error {
	code, err := heartbeatScript.Run(ctx, s.client,
		[]string{s.jobKey(jobID)},
		s.prefix, jobID, workerID, formatTime(now), micros(now),
	).Int()
	if err != nil {
		return unavailable("heartbeat job", err)
	}
	if code != codeOK {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// ReclaimStaleJobs returns processing jobs whose last heartbeat is older
// than cutoff to pending.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := reclaimScript.Run(ctx, s.client,
		[]string{s.processingKey()},
		s.prefix, micros(cutoff), formatTime(time.Now()),
	).Int64()
	if err != nil {
		return 0, unavailable("reclaim stale jobs", err)
	}
	return n, nil
}

// ── helpers ──────────────────────────────────────────────────────

func (s *Store) getJobs(ctx context.Context, ids []string) ([]*job.Job, error) {
	if len(ids) == 0 {
		return []*job.Job{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("get jobs", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue // removed between the index read and the fetch
		}
		j, err := mapToJob(vals)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// jobFields flattens a job into HSET field/value pairs. Creation fields
// are written only on insert.
func jobFields(j *job.Job, withCreated bool) []interface{} {
	hb, hbUs := "", ""
	if j.HeartbeatAt != nil {
		hb, hbUs = formatTime(*j.HeartbeatAt), micros(*j.HeartbeatAt)
	}
	f := []interface{}{
		"id", j.ID,
		"command", j.Command,
		"state", string(j.State),
		"attempts", strconv.Itoa(j.Attempts),
		"max_retries", strconv.Itoa(j.MaxRetries),
		"last_error", j.LastError,
		"worker_id", j.WorkerID,
		"run_at", formatTime(j.RunAt),
		"run_us", micros(j.RunAt),
		"heartbeat_at", hb,
		"heartbeat_us", hbUs,
		"updated_at", formatTime(j.UpdatedAt),
	}
	if withCreated {
		f = append(f,
			"created_at", formatTime(j.CreatedAt),
			"created_us", micros(j.CreatedAt),
		)
	}
	return f
}

func mapToJob(m map[string]string) (*job.Job, error) {
	j := &job.Job{
		ID:        m["id"],
		Command:   m["command"],
		State:     job.State(m["state"]),
		LastError: m["last_error"],
		WorkerID:  m["worker_id"],
	}

	var err error
	if j.Attempts, err = strconv.Atoi(m["attempts"]); err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse attempts: %w", err)
	}
	if j.MaxRetries, err = strconv.Atoi(m["max_retries"]); err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse max_retries: %w", err)
	}
	if j.RunAt, err = parseTime(m["run_at"]); err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse run_at: %w", err)
	}
	if j.CreatedAt, err = parseTime(m["created_at"]); err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(m["updated_at"]); err != nil {
		return nil, fmt.Errorf("queuectl/redis: parse updated_at: %w", err)
	}
	if v := m["heartbeat_at"]; v != "" {
		hb, err := parseTime(v)
		if err != nil {
			return nil, fmt.Errorf("queuectl/redis: parse heartbeat_at: %w", err)
		}
		j.HeartbeatAt = &hb
	}
	return j, nil
}

// sliceToMap converts a flat HGETALL script reply into a map.
func sliceToMap(vals []interface{}) map[string]string {
	m := make(map[string]string, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		k, _ := vals[i].(string)
		v, _ := vals[i+1].(string)
		m[k] = v
	}
	return m
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// micros is the Sorted Set score for t. Microseconds since the epoch stay
// well inside float64's exact integer range.
func micros(t time.Time) string { return strconv.FormatInt(t.UnixMicro(), 10) }
