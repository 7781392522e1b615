package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobEnqueued   = "job.enqueued"
	ActionJobStarted    = "job.started"
	ActionJobCompleted  = "job.completed"
	ActionJobRetrying   = "job.retrying"
	ActionJobDead       = "job.dead"
	ActionJobRetried    = "job.retried"
	ActionJobsReclaimed = "job.reclaimed"
	ActionShutdown      = "queue.shutdown"
)

// Audit event categories group related actions.
const (
	CategoryJob   = "queuectl.job"
	CategoryQueue = "queuectl.queue"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob   = "job"
	ResourceQueue = "queue"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobEnqueued,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobRetrying,
		ActionJobDead,
		ActionJobRetried,
		ActionJobsReclaimed,
		ActionShutdown,
	}
}
