package search

import (
	"context"

	"github.com/loomindex/loomindex/internal/domain"
)

// Searcher scores one query against the whole corpus and returns the full
// ranked sequence.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.ScoredResult, error)
}

// Expander produces query variants for the search fan-out.
type Expander interface {
	Expand(query string) []string
}

// Enricher fetches related items for the truncated top results.
type Enricher interface {
	Enrich(ctx context.Context, results []domain.ScoredResult) ([]domain.RelatedItem, error)
}
