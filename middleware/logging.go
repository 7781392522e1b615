package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/KarthikHK-01/queuectl/job"
)

// Logging returns middleware that logs each execution attempt.
// Failures are logged at Warn since the worker decides whether they
// lead to a retry or the DLQ.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		attempt := j.Attempts + 1
		logger.Info("job started",
			slog.String("job_id", j.ID),
			slog.String("command", j.Command),
			slog.Int("attempt", attempt),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("job attempt failed",
				slog.String("job_id", j.ID),
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("job completed",
				slog.String("job_id", j.ID),
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
