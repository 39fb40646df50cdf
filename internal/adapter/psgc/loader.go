package psgc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// Loader assembles the two-level reference tree for one province, caching
// it as JSON on disk. A valid cache is the source of truth: when present
// and forceRefresh is false, Load performs no network access.
type Loader struct {
	client       *Client
	provinceCode string
	cachePath    string
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewLoader creates a reference loader for the given province.
func NewLoader(client *Client, provinceCode, cachePath string, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		client:       client,
		provinceCode: provinceCode,
		cachePath:    cachePath,
		logger:       logger,
		metrics:      metrics,
	}
}

// Load returns the reference tree, from cache when possible. A cold load
// fetches every municipality and its barangays, persists the assembled
// tree, and only then returns it. Upstream failure without a usable cache
// yields domain.ErrReferenceUnavailable.
func (l *Loader) Load(ctx context.Context, forceRefresh bool) (domain.ReferenceTree, error) {
	if !forceRefresh {
		if tree, ok := l.readCache(); ok {
			l.metrics.ReferenceLoads.WithLabelValues("cache").Inc()
			return tree, nil
		}
	}

	tree, err := l.fetchTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, err)
	}

	if err := l.writeCache(tree); err != nil {
		return nil, fmt.Errorf("persist reference cache: %w", err)
	}

	l.metrics.ReferenceLoads.WithLabelValues("remote").Inc()
	return tree, nil
}

func (l *Loader) fetchTree(ctx context.Context) (domain.ReferenceTree, error) {
	munis, err := l.client.Municipalities(ctx, l.provinceCode)
	if err != nil {
		return nil, err
	}

	tree := make(domain.ReferenceTree, 0, len(munis))
	for _, m := range munis {
		// A failed leaf fetch aborts the whole load; a tree with holes
		// would silently mis-normalize every name under the missing unit.
		units, err := l.client.Barangays(ctx, m.Code)
		if err != nil {
			return nil, err
		}

		barangays := make([]domain.Barangay, 0, len(units))
		for _, b := range units {
			barangays = append(barangays, domain.Barangay{
				Code: b.Code,
				Name: domain.CanonicalName(b.Name),
			})
		}

		tree = append(tree, domain.Municipality{
			Code:      m.Code,
			Name:      domain.CanonicalName(m.Name),
			Barangays: barangays,
		})
		l.logger.Debug("fetched barangays", "municipality", m.Name, "count", len(barangays))
	}

	return tree, nil
}

// readCache returns the cached tree and whether it is usable.
func (l *Loader) readCache() (domain.ReferenceTree, bool) {
	data, err := os.ReadFile(l.cachePath)
	if err != nil {
		return nil, false
	}

	var tree domain.ReferenceTree
	if err := json.Unmarshal(data, &tree); err != nil || len(tree) == 0 {
		l.logger.Warn("reference cache unusable, refetching", "path", l.cachePath, "error", err)
		return nil, false
	}
	return tree, true
}

func (l *Loader) writeCache(tree domain.ReferenceTree) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.cachePath, data, 0o644)
}
