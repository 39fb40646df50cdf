// Package postgres persists processed notices, keyed by announcement
// URL so re-runs update rows instead of duplicating them.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// Open connects through the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS notices (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	url        TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL DEFAULT 'active',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notices_created_at_idx ON notices (created_at DESC);
`

// EnsureSchema creates the notices table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Store reads and writes notice rows.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewStore(db *sql.DB, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, logger: logger, metrics: metrics}
}

// UpsertNotices writes every result, replacing any existing row with
// the same URL, and returns how many were written.
func (s *Store) UpsertNotices(ctx context.Context, notices []domain.NoticeResult) (int, error) {
	count := 0
	for _, n := range notices {
		data, err := json.Marshal(n)
		if err != nil {
			return count, fmt.Errorf("marshal notice %s: %w", n.URL, err)
		}

		_, err = s.db.ExecContext(ctx, `
INSERT INTO notices (title, url, data)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE
SET title = EXCLUDED.title, data = EXCLUDED.data, status = 'active', updated_at = now()
`, n.Title, n.URL, data)
		if err != nil {
			return count, fmt.Errorf("upsert notice %s: %w", n.URL, err)
		}

		count++
		s.metrics.NoticesUpserted.Inc()
	}

	s.logger.Info("upserted notices", "count", count)
	return count, nil
}

// Latest returns up to limit active notices, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]domain.StoredNotice, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, url, created_at, data
FROM notices
WHERE status = 'active'
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest notices: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StoredNotice, 0, limit)
	for rows.Next() {
		var n domain.StoredNotice
		var data []byte
		if err := rows.Scan(&n.ID, &n.Title, &n.URL, &n.CreatedAt, &data); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode notice %d: %w", n.ID, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return out, nil
}
