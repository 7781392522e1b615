// Package dlq provides the dead letter queue for jobs that have exhausted
// their retry budget.
//
// A job whose failed attempt pushes attempts above max_retries is moved
// to the dead state by the worker. Dead jobs keep their command, attempt
// count, and last error for inspection, and no automatic operation
// touches them again.
//
// # Service
//
// [Service] wraps a job.Store with the operator-facing operations:
//
//	svc := dlq.NewService(store, dlq.WithLogger(logger))
//
//	dead, _ := svc.List(ctx, job.ListOpts{Limit: 50})
//	_, _ = svc.Retry(ctx, dead[0].ID)
//	n, _ := svc.RetryAll(ctx)
//
// Retry and RetryAll are conditional writes in the store: only jobs that
// are still dead at the moment of the update are reset, so concurrent
// retries of the same job cannot both succeed.
package dlq
