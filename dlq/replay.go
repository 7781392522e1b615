package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/KarthikHK-01/queuectl/job"
)

// Retry moves one dead job back to pending with attempts reset to zero and
// run_at set to now. It returns queuectl.ErrJobNotFound for an unknown id
// and queuectl.ErrInvalidState when the job is not dead.
func (s *Service) Retry(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.store.ResetDeadJob(ctx, jobID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("dead job requeued", slog.String("job_id", j.ID))
	s.extensions.EmitJobRetried(ctx, j)
	return j, nil
}

// RetryAll requeues every dead job and returns how many were moved.
// Running it with an empty DLQ is a no-op that returns zero.
func (s *Service) RetryAll(ctx context.Context) (int64, error) {
	n, err := s.store.ResetDeadJobs(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("dead jobs requeued", slog.Int64("count", n))
	}
	return n, nil
}
