package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

// Store persists and reads back processed notices.
type Store interface {
	UpsertNotices(ctx context.Context, notices []domain.NoticeResult) (int, error)
	Latest(ctx context.Context, limit int) ([]domain.StoredNotice, error)
}

// Publisher forwards processed notices to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, notices []domain.NoticeResult) error
}

// Service ties the pipeline to persistence and, optionally, a
// publisher. It is the unit the HTTP API talks to.
type Service struct {
	pipeline  *Pipeline
	store     Store
	publisher Publisher
	logger    *slog.Logger
	pageSize  int
}

// NewService creates a Service. publisher may be nil when no brokers
// are configured.
func NewService(p *Pipeline, store Store, publisher Publisher, logger *slog.Logger, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Service{
		pipeline:  p,
		store:     store,
		publisher: publisher,
		logger:    logger,
		pageSize:  pageSize,
	}
}

// Refresh runs the pipeline, upserts the results, and returns how many
// notices were written. A publish failure is logged but does not fail
// the refresh; the rows are already persisted.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	results, err := s.pipeline.Run(ctx)
	if err != nil {
		return 0, err
	}

	count, err := s.store.UpsertNotices(ctx, results)
	if err != nil {
		return count, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, results); err != nil {
			s.logger.Warn("publish after refresh failed", "error", err)
		}
	}
	return count, nil
}

// Latest returns the most recent active notices.
func (s *Service) Latest(ctx context.Context) ([]domain.StoredNotice, error) {
	return s.store.Latest(ctx, s.pageSize)
}

// CheckReadiness reports whether a run has completed.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.pipeline.CheckReadiness(ctx)
}
