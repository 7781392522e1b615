package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// A panic becomes an execution failure, so the job is retried or
// dead-lettered like any failed command instead of killing the worker.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job handler panicked",
					slog.String("job_id", j.ID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("%w: panic: %v", queuectl.ErrExecutionFailure, r)
			}
		}()
		return next(ctx)
	}
}
