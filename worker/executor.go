// Package worker runs queued commands: a Worker claims and executes jobs
// one at a time, an Executor resolves each attempt into a state
// transition, and a Pool supervises many workers.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/KarthikHK-01/queuectl/backoff"
	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/job"
	"github.com/KarthikHK-01/queuectl/middleware"
)

// Executor runs a claimed job through middleware and the Runner, then
// records the outcome: completed, pending with a backoff delay, or dead.
type Executor struct {
	store      job.Store
	runner     Runner
	extensions *ext.Registry
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	store job.Store,
	runner Runner,
	extensions *ext.Registry,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Executor{
		store:      store,
		runner:     runner,
		extensions: extensions,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs one attempt of a processing job.
// Execution failures are absorbed into the job's state; the returned
// error is non-nil only when the outcome could not be persisted.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	e.extensions.EmitJobStarted(ctx, j)

	terminal := func(ctx context.Context) error {
		res, err := e.runner.Run(ctx, j.Command)
		if res.Stdout != "" {
			e.logger.Debug("job output",
				slog.String("job_id", j.ID),
				slog.String("stdout", res.Stdout),
			)
		}
		return err
	}

	start := time.Now()
	err := e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	// The outcome must be recorded even if the command was hard-cancelled.
	storeCtx := context.WithoutCancel(ctx)
	if err != nil {
		return e.handleFailure(storeCtx, j, err)
	}
	return e.handleSuccess(storeCtx, j, elapsed)
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	j.Succeed()

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

// handleFailure bumps attempts and either reschedules or dead-letters.
func (e *Executor) handleFailure(ctx context.Context, j *job.Job, runErr error) error {
	now := time.Now().UTC()
	retrying := j.Fail(runErr.Error(), now, e.backoff.Delay)

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.Error("failed to update job after failure",
			slog.String("job_id", j.ID),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	if retrying {
		e.extensions.EmitJobRetrying(ctx, j, runErr, j.RunAt)
		e.logger.Info("job scheduled for retry",
			slog.String("job_id", j.ID),
			slog.Int("attempt", j.Attempts),
			slog.Int("max_retries", j.MaxRetries),
			slog.Duration("delay", j.RunAt.Sub(now)),
		)
		return nil
	}

	e.extensions.EmitJobDead(ctx, j, runErr)
	e.logger.Warn("job moved to DLQ after exhausting retries",
		slog.String("job_id", j.ID),
		slog.Int("attempts", j.Attempts),
		slog.String("error", runErr.Error()),
	)
	return nil
}
