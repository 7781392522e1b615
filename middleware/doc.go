// Package middleware provides composable middleware for job execution.
//
// A [Middleware] wraps the handler that runs a job's command. Middleware
// are composed with [Chain]; the first one in the list is the outermost
// wrapper.
//
//	chain := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.Timeout(logger, 30*time.Second),
//	)
//
// # Built-in Middleware
//
//   - [Logging] logs each attempt with its duration and outcome
//   - [Recover] turns panics into execution failures
//   - [Timeout] cancels the command after a fixed duration
//   - [Tracing] wraps each attempt in an OpenTelemetry span
//   - [Metrics] records attempt duration and outcome counters
//
// Errors returned through the chain are execution failures: the worker
// turns them into a retry or a dead-letter transition. Store errors never
// pass through middleware.
package middleware
