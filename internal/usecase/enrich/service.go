// Package enrich augments ranked search results with related items drawn
// from the knowledge graph.
package enrich

import (
	"context"
	"fmt"

	"github.com/loomindex/loomindex/internal/domain"
)

// DefaultLimit is the related-items budget per search.
const DefaultLimit = 5

// Service looks up graph neighbors for ranked results.
type Service struct {
	graph GraphReader
	limit int
}

// New creates an enrichment service. limit <= 0 selects DefaultLimit.
func New(graph GraphReader, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{graph: graph, limit: limit}
}

// Enrich collects related items for each result's cloth class, in result
// order, and truncates the pool to the limit. Pool order is discovery order,
// not a relevance ranking: earlier classes can exhaust the budget before
// later ones contribute. Results without a cloth class contribute nothing.
func (s *Service) Enrich(ctx context.Context, results []domain.ScoredResult) ([]domain.RelatedItem, error) {
	pool := make([]domain.RelatedItem, 0, s.limit)

	for _, r := range results {
		if r.Item.ClothClass == "" {
			continue
		}

		related, err := s.graph.RelatedItems(ctx, r.Item.ClothClass)
		if err != nil {
			return nil, fmt.Errorf("enrich class %q: %w", r.Item.ClothClass, err)
		}

		pool = append(pool, related...)
		if len(pool) >= s.limit {
			return pool[:s.limit], nil
		}
	}
	return pool, nil
}
