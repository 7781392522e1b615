package mongo

import (
	"time"

	"github.com/KarthikHK-01/queuectl/job"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID          string     `bson:"_id"`
	Command     string     `bson:"command"`
	State       string     `bson:"state"`
	Attempts    int        `bson:"attempts"`
	MaxRetries  int        `bson:"max_retries"`
	LastError   string     `bson:"last_error"`
	WorkerID    string     `bson:"worker_id"`
	RunAt       time.Time  `bson:"run_at"`
	HeartbeatAt *time.Time `bson:"heartbeat_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:          j.ID,
		Command:     j.Command,
		State:       string(j.State),
		Attempts:    j.Attempts,
		MaxRetries:  j.MaxRetries,
		LastError:   j.LastError,
		WorkerID:    j.WorkerID,
		RunAt:       j.RunAt,
		HeartbeatAt: j.HeartbeatAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) *job.Job {
	j := &job.Job{
		ID:         m.ID,
		Command:    m.Command,
		State:      job.State(m.State),
		Attempts:   m.Attempts,
		MaxRetries: m.MaxRetries,
		LastError:  m.LastError,
		WorkerID:   m.WorkerID,
		RunAt:      m.RunAt.UTC(),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
	if m.HeartbeatAt != nil {
		hb := m.HeartbeatAt.UTC()
		j.HeartbeatAt = &hb
	}
	return j
}

// ── Config model ─────────────────────────────────────────────────

type configModel struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}
