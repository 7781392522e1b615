// Package observability provides an OpenTelemetry metrics extension for
// queuectl. The MetricsExtension implements the lifecycle hooks to record
// queue-wide counters for enqueue, completion, retry, dead-letter, DLQ
// retry, and stale-job reclaim events.
//
// For per-attempt tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
