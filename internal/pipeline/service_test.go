package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

type stubStore struct {
	upserted   []domain.NoticeResult
	upsertErr  error
	stored     []domain.StoredNotice
	gotLimit   int
	latestErr  error
}

func (s *stubStore) UpsertNotices(_ context.Context, notices []domain.NoticeResult) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.upserted = append(s.upserted, notices...)
	return len(notices), nil
}

func (s *stubStore) Latest(_ context.Context, limit int) ([]domain.StoredNotice, error) {
	s.gotLimit = limit
	return s.stored, s.latestErr
}

type stubPublisher struct {
	published []domain.NoticeResult
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, notices []domain.NoticeResult) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, notices...)
	return nil
}

func runnableService(t *testing.T, store Store, pub Publisher) *Service {
	t.Helper()
	site := stubSite{
		announcements: []domain.Announcement{{Title: "Notice", URL: "https://zaneco.ph/notice-1/"}},
	}
	p := newTestPipeline(stubReference{tree: testReference()}, site, stubRecognizer{}, &stubExtractor{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(p, store, pub, logger, 10)
}

func TestRefresh_PersistsAndPublishes(t *testing.T) {
	store := &stubStore{}
	pub := &stubPublisher{}
	svc := runnableService(t, store, pub)

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "https://zaneco.ph/notice-1/", store.upserted[0].URL)
	assert.Len(t, pub.published, 1)
}

func TestRefresh_PublishFailureDoesNotFailRefresh(t *testing.T) {
	store := &stubStore{}
	pub := &stubPublisher{err: errors.New("broker unreachable")}
	svc := runnableService(t, store, pub)

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, store.upserted, 1)
}

func TestRefresh_RunsWithoutPublisher(t *testing.T) {
	store := &stubStore{}
	svc := runnableService(t, store, nil)

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefresh_UpsertFailurePropagates(t *testing.T) {
	store := &stubStore{upsertErr: errors.New("connection reset")}
	svc := runnableService(t, store, nil)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLatest_UsesConfiguredPageSize(t *testing.T) {
	store := &stubStore{stored: []domain.StoredNotice{{ID: 1, URL: "https://zaneco.ph/notice-1/"}}}
	svc := runnableService(t, store, nil)

	notices, err := svc.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, store.gotLimit)
	require.Len(t, notices, 1)
	assert.Equal(t, int64(1), notices[0].ID)
}
