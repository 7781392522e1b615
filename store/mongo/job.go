package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// claimSort is the claim and ready-list order.
var claimSort = bson.D{
	{Key: "run_at", Value: 1},
	{Key: "created_at", Value: 1},
	{Key: "_id", Value: 1},
}

// InsertJob persists a new job.
func (s *Store) InsertJob(ctx context.Context, j *job.Job) error {
	j.ApplyDefaults(time.Now().UTC())
	_, err := s.db.Collection(colJobs).InsertOne(ctx, toJobModel(j))
	if err != nil {
		if isDuplicateKey(err) {
			return queuectl.ErrJobAlreadyExists
		}
		return unavailable("insert job", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"_id": jobID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, queuectl.ErrJobNotFound
		}
		return nil, unavailable("get job", err)
	}
	return fromJobModel(&m), nil
}

// ListJobsByState returns jobs in state ordered by creation time.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset))
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	return s.find(ctx, "list jobs by state", bson.M{"state": string(state)}, findOpts)
}

// ListReadyJobs returns pending jobs due at now in claim order.
func (s *Store) ListReadyJobs(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	findOpts := options.Find().SetSort(claimSort)
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	filter := bson.M{
		"state":  string(job.StatePending),
		"run_at": bson.M{"$lte": now},
	}
	return s.find(ctx, "list ready jobs", filter, findOpts)
}

// ClaimJob atomically claims the oldest ready job. Uses FindOneAndUpdate so
// the match and the state change are one document-level operation.
func (s *Store) ClaimJob(ctx context.Context, workerID string, now time.Time) (*job.Job, error) {
	filter := bson.M{
		"state":  string(job.StatePending),
		"run_at": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"state":        string(job.StateProcessing),
			"worker_id":    workerID,
			"heartbeat_at": now,
			"updated_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(claimSort)

	var m jobModel
	err := s.db.Collection(colJobs).FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil //nolint:nilnil // no job ready
		}
		return nil, unavailable("claim job", err)
	}
	return fromJobModel(&m), nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"command":     j.Command,
		"state":       string(j.State),
		"attempts":    j.Attempts,
		"max_retries": j.MaxRetries,
		"last_error":  j.LastError,
		"worker_id":   j.WorkerID,
		"run_at":      j.RunAt,
		"updated_at":  j.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if j.HeartbeatAt != nil {
		set["heartbeat_at"] = *j.HeartbeatAt
	} else {
		update["$unset"] = bson.M{"heartbeat_at": ""}
	}

	res, err := s.db.Collection(colJobs).UpdateOne(ctx, bson.M{"_id": j.ID}, update)
	if err != nil {
		return unavailable("update job", err)
	}
	if res.MatchedCount == 0 {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// CountJobsByState returns per-state job counts.
func (s *Store) CountJobsByState(ctx context.Context) (map[job.State]int64, error) {
	pipeline := mongod.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$state"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.db.Collection(colJobs).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable("count jobs", err)
	}

	var rows []struct {
		State string `bson:"_id"`
		N     int64  `bson:"n"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, unavailable("count jobs", err)
	}

	counts := job.ZeroCounts()
	for _, r := range rows {
		counts[job.State(r.State)] = r.N
	}
	return counts, nil
}

// ResetDeadJob moves one dead job back to pending.
func (s *Store) ResetDeadJob(ctx context.Context, jobID string, now time.Time) (*job.Job, error) {
	col := s.db.Collection(colJobs)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m jobModel
	err := col.FindOneAndUpdate(ctx,
		bson.M{"_id": jobID, "state": string(job.StateDead)},
		resetDeadUpdate(now),
		opts,
	).Decode(&m)
	if err == nil {
		return fromJobModel(&m), nil
	}
	if !isNoDocuments(err) {
		return nil, unavailable("reset dead job", err)
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": jobID})
	if err != nil {
		return nil, unavailable("reset dead job", err)
	}
	if n == 0 {
		return nil, queuectl.ErrJobNotFound
	}
	return nil, queuectl.ErrInvalidState
}

// ResetDeadJobs moves every dead job back to pending.
func (s *Store) ResetDeadJobs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.Collection(colJobs).UpdateMany(ctx,
		bson.M{"state": string(job.StateDead)},
		resetDeadUpdate(now),
	)
	if err != nil {
		return 0, unavailable("reset dead jobs", err)
	}
	return res.ModifiedCount, nil
}

func resetDeadUpdate(now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"state":      string(job.StatePending),
			"attempts":   0,
			"last_error": "",
			"worker_id":  "",
			"run_at":     now,
			"updated_at": now,
		},
		"$unset": bson.M{"heartbeat_at": ""},
	}
}

// HeartbeatJob updates the heartbeat timestamp for a processing job.
func (s *Store) HeartbeatJob(ctx context.Context, jobID, workerID string, now time.Time) error {
	res, err := s.db.Collection(colJobs).UpdateOne(ctx,
		bson.M{"_id": jobID, "worker_id": workerID, "state": string(job.StateProcessing)},
		bson.M{"$set": bson.M{"heartbeat_at": now}},
	)
	if err != nil {
		return unavailable("heartbeat job", err)
	}
	if res.MatchedCount == 0 {
		return queuectl.ErrJobNotFound
	}
	return nil
}

// ReclaimStaleJobs returns processing jobs whose last heartbeat is older
// than cutoff to pending.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Collection(colJobs).UpdateMany(ctx,
		bson.M{
			"state":        string(job.StateProcessing),
			"heartbeat_at": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set": bson.M{
				"state":      string(job.StatePending),
				"worker_id":  "",
				"updated_at": time.Now().UTC(),
			},
			"$unset": bson.M{"heartbeat_at": ""},
		},
	)
	if err != nil {
		return 0, unavailable("reclaim stale jobs", err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptionsBuilder) ([]*job.Job, error) {
	cursor, err := s.db.Collection(colJobs).Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(op, err)
	}

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, unavailable(op, err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}
