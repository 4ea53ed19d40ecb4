// Package search orchestrates the query pipeline: expansion, per-variant
// corpus scoring, cross-variant merging and graph enrichment.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/loomindex/loomindex/internal/domain"
	"github.com/loomindex/loomindex/internal/logger"
	"github.com/loomindex/loomindex/internal/metrics"
)

// DefaultTopK is the number of ranked results returned per request.
const DefaultTopK = 5

// Service is the top-level search engine.
type Service struct {
	index    Searcher
	expander Expander
	enricher Enricher
	topK     int
}

// New creates a search service. expander may be nil (expansion disabled);
// enricher may be nil (no related items). topK <= 0 selects DefaultTopK.
func New(index Searcher, expander Expander, enricher Enricher, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{index: index, expander: expander, enricher: enricher, topK: topK}
}

// Search runs the full pipeline for one request.
//
// Every expansion's ranked sequence is concatenated into one pool with no
// cross-expansion deduplication: an item scoring well for several variants
// appears once per variant. The pool is stable-sorted by score, so tied
// scores keep pool insertion order, which follows expansion iteration
// order — an implementation artifact, not a guaranteed ranking.
//
// Enrichment failures are isolated: a graph outage degrades the response to
// ranked results with empty related items instead of failing the request.
func (s *Service) Search(ctx context.Context, rawQuery string, expand bool) (domain.SearchResponse, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return domain.SearchResponse{}, domain.ErrEmptyQuery
	}

	queries := []string{rawQuery}
	if expand && s.expander != nil {
		queries = s.expander.Expand(rawQuery)
	}

	metrics.SearchRequestsTotal.WithLabelValues(strconv.FormatBool(expand)).Inc()
	metrics.SearchExpansionFanout.Observe(float64(len(queries)))

	var pool []domain.ScoredResult
	for _, q := range queries {
		ranked, err := s.index.Search(ctx, q)
		if err != nil {
			return domain.SearchResponse{}, fmt.Errorf("search variant %q: %w", q, err)
		}
		pool = append(pool, ranked...)
	}

	sort.SliceStable(pool, func(a, b int) bool {
		sa, sb := pool[a].Score, pool[b].Score
		if math.IsNaN(sa) {
			return false
		}
		if math.IsNaN(sb) {
			return true
		}
		return sa > sb
	})
	if len(pool) > s.topK {
		pool = pool[:s.topK]
	}

	related := []domain.RelatedItem{}
	if s.enricher != nil {
		var err error
		related, err = s.enricher.Enrich(ctx, pool)
		if err != nil {
			logger.FromContext(ctx).Warn("Enrichment failed, returning search-only results",
				zap.String("query", rawQuery), zap.Error(err))
			metrics.SearchEnrichmentFailures.Inc()
			related = []domain.RelatedItem{}
		}
	}

	return domain.SearchResponse{
		Query:           rawQuery,
		ExpandedQueries: queries,
		Results:         pool,
		RelatedItems:    related,
	}, nil
}
