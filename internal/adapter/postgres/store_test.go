package postgres

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(db, logger, observability.NewMetricsForTesting()), mock
}

func sampleNotice(url string) domain.NoticeResult {
	return domain.NoticeResult{
		Title:       "NOTICE OF POWER INTERRUPTION",
		URL:         url,
		PublishDate: time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC),
		ProcessedImages: []domain.ProcessedImage{
			{ImageURL: url + "/img.png", OCRText: "SEPT 5 8:30AM", Structured: []domain.ScheduleCandidate{}},
		},
	}
}

func TestUpsertNotices_InsertsEachRow(t *testing.T) {
	store, mock := newMockStore(t)

	n1 := sampleNotice("https://zaneco.ph/notice-1/")
	n2 := sampleNotice("https://zaneco.ph/notice-2/")

	mock.ExpectExec("ON CONFLICT \\(url\\) DO UPDATE").
		WithArgs(n1.Title, n1.URL, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("ON CONFLICT \\(url\\) DO UPDATE").
		WithArgs(n2.Title, n2.URL, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	count, err := store.UpsertNotices(context.Background(), []domain.NoticeResult{n1, n2})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertNotices_StopsOnFirstFailure(t *testing.T) {
	store, mock := newMockStore(t)

	n1 := sampleNotice("https://zaneco.ph/notice-1/")
	mock.ExpectExec("ON CONFLICT").
		WithArgs(n1.Title, n1.URL, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	count, err := store.UpsertNotices(context.Background(), []domain.NoticeResult{n1, sampleNotice("https://zaneco.ph/notice-2/")})
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Contains(t, err.Error(), "notice-1")
}

func TestLatest_ReturnsActiveNoticesNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	n := sampleNotice("https://zaneco.ph/notice-1/")
	data, err := json.Marshal(n)
	require.NoError(t, err)

	created := time.Date(2025, time.September, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "title", "url", "created_at", "data"}).
		AddRow(int64(7), n.Title, n.URL, created, data)

	mock.ExpectQuery("WHERE status = 'active'").
		WithArgs(10).
		WillReturnRows(rows)

	got, err := store.Latest(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, n.URL, got[0].URL)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, n.Title, got[0].Data.Title)
	require.Len(t, got[0].Data.ProcessedImages, 1)
	assert.Equal(t, "SEPT 5 8:30AM", got[0].Data.ProcessedImages[0].OCRText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_RejectsCorruptPayload(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "url", "created_at", "data"}).
		AddRow(int64(1), "t", "u", time.Now(), []byte("not json"))
	mock.ExpectQuery("WHERE status = 'active'").WithArgs(5).WillReturnRows(rows)

	_, err := store.Latest(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode notice")
}
