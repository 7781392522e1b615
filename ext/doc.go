// Package ext defines the extension system for queuectl.
//
// Extensions are notified of lifecycle events and can react to them:
// recording metrics, writing audit logs, and so on. Each lifecycle hook is
// a separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobEnqueued]: job was accepted into the queue
//   - [JobStarted]: a worker claimed the job and is running its command
//   - [JobCompleted]: the command exited with status 0
//   - [JobRetrying]: the command failed and the job was rescheduled
//   - [JobDead]: the command failed with no retries remaining
//   - [JobRetried]: a dead job was manually returned to pending
//
// # Other Hooks
//
//   - [JobsReclaimed]: stale processing jobs were returned to pending
//   - [Shutdown]: the engine is shutting down
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// otherwise ignored.
package ext
