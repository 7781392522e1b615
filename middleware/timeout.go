package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// Timeout returns middleware that enforces a per-job execution deadline.
// When d is zero the middleware is a pass-through. A command still
// running at the deadline has its context cancelled, and the attempt is
// reported as an execution failure.
func Timeout(logger *slog.Logger, d time.Duration) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		err := next(ctx)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("job timed out",
				slog.String("job_id", j.ID),
				slog.Duration("timeout", d),
			)
			if !errors.Is(err, queuectl.ErrExecutionFailure) {
				err = fmt.Errorf("%w: %w", queuectl.ErrExecutionFailure, err)
			}
			return fmt.Errorf("timed out after %s: %w", d, err)
		}
		return err
	}
}
