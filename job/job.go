package job

import (
	"fmt"
	"time"

	"github.com/KarthikHK-01/queuectl"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be claimed once RunAt passes.
	StatePending State = "pending"
	// StateProcessing means exactly one worker has claimed the job.
	StateProcessing State = "processing"
	// StateCompleted means the command exited successfully. Terminal.
	StateCompleted State = "completed"
	// StateFailed is accepted by every store but never entered by the engine.
	StateFailed State = "failed"
	// StateDead means the retry budget was exhausted. Terminal until a
	// manual DLQ retry.
	StateDead State = "dead"
)

// States lists every valid state in display order.
var States = []State{StatePending, StateProcessing, StateCompleted, StateFailed, StateDead}

// ParseState validates s as a job state.
func ParseState(s string) (State, error) {
	for _, st := range States {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown state %q", queuectl.ErrInvalidJob, s)
}

// IsTerminal reports whether automatic operations must leave the job alone.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateDead
}

// Job represents a command queued for asynchronous execution.
type Job struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	State       State      `json:"state"`
	Attempts    int        `json:"attempts"`
	MaxRetries  int        `json:"max_retries"`
	LastError   string     `json:"last_error,omitempty"`
	WorkerID    string     `json:"worker_id,omitempty"`
	RunAt       time.Time  `json:"run_at"`
	HeartbeatAt *time.Time `json:"heartbeat_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ready reports whether the job may be claimed at now.
func (j *Job) Ready(now time.Time) bool {
	return j.State == StatePending && !j.RunAt.After(now)
}

// Validate checks the fields a caller controls at enqueue time.
func (j *Job) Validate() error {
	if j.Command == "" {
		return fmt.Errorf("%w: command is required", queuectl.ErrInvalidJob)
	}
	if j.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be non-negative, got %d", queuectl.ErrInvalidJob, j.MaxRetries)
	}
	if j.Attempts < 0 {
		return fmt.Errorf("%w: attempts must be non-negative, got %d", queuectl.ErrInvalidJob, j.Attempts)
	}
	if _, err := ParseState(string(j.State)); err != nil {
		return err
	}
	return nil
}

// ApplyDefaults fills zero timestamps with now and a zero state with
// pending, matching what every store does on insert. An UpdatedAt before
// CreatedAt is raised to CreatedAt.
func (j *Job) ApplyDefaults(now time.Time) {
	if j.State == "" {
		j.State = StatePending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() || j.UpdatedAt.Before(j.CreatedAt) {
		j.UpdatedAt = j.CreatedAt
	}
	if j.RunAt.IsZero() {
		j.RunAt = j.CreatedAt
	}
}

// Succeed resolves a processing job as completed.
func (j *Job) Succeed() {
	j.State = StateCompleted
	j.Attempts++
	j.LastError = ""
	j.HeartbeatAt = nil
}

// Fail resolves a processing job after a failed execution. delay maps the
// new attempt count to the retry delay. It reports whether the job was
// rescheduled (true) or dead-lettered (false).
func (j *Job) Fail(reason string, now time.Time, delay func(attempt int) time.Duration) bool {
	j.Attempts++
	j.LastError = reason
	j.HeartbeatAt = nil

	if j.Attempts <= j.MaxRetries {
		j.State = StatePending
		j.RunAt = now.Add(delay(j.Attempts))
		return true
	}

	j.State = StateDead
	return false
}
