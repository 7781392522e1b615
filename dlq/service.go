package dlq

import (
	"context"
	"log/slog"

	"github.com/KarthikHK-01/queuectl/ext"
	"github.com/KarthikHK-01/queuectl/job"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

// Service provides high-level dead letter operations over a job.Store.
// Dead jobs stay in the jobs table; the DLQ is the view of rows whose
// state is dead.
type Service struct {
	store      job.Store
	extensions *ext.Registry
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for retry events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithExtensions sets the registry that receives JobRetried events.
func WithExtensions(r *ext.Registry) Option {
	return func(s *Service) { s.extensions = r }
}

// NewService creates a DLQ service.
func NewService(store job.Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.extensions == nil {
		s.extensions = ext.NewRegistry(s.logger)
	}
	return s
}

// List returns dead jobs, oldest first.
func (s *Service) List(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	return s.store.ListJobsByState(ctx, job.StateDead, opts)
}

// Count returns the number of dead jobs.
func (s *Service) Count(ctx context.Context) (int64, error) {
	counts, err := s.store.CountJobsByState(ctx)
	if err != nil {
		return 0, err
	}
	return counts[job.StateDead], nil
}
