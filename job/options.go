package job

import "time"

// Options configures a single enqueue call.
type Options struct {
	// ID is the caller-chosen job ID. Empty means generate one.
	ID string

	// MaxRetries overrides the configured default when non-nil.
	MaxRetries *int

	// RunAt schedules the job for future execution. Zero means immediate.
	RunAt time.Time

	// Schedule is a cron expression; the job runs once at its next fire
	// time. Ignored when RunAt is set.
	Schedule string
}

// Option is a functional option for configuring an enqueue call.
type Option func(*Options)

// NewOptions applies opts to a zero Options value.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithID sets an explicit job ID.
func WithID(id string) Option {
	return func(o *Options) {
		o.ID = id
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = &n
	}
}

// WithRunAt schedules the job for execution at a specific time.
func WithRunAt(t time.Time) Option {
	return func(o *Options) {
		o.RunAt = t
	}
}

// WithSchedule defers the job to the next fire time of a cron expression.
func WithSchedule(expr string) Option {
	return func(o *Options) {
		o.Schedule = expr
	}
}
