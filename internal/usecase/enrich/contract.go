package enrich

import (
	"context"

	"github.com/loomindex/loomindex/internal/domain"
)

// GraphReader fetches related items from the knowledge graph.
type GraphReader interface {
	RelatedItems(ctx context.Context, clothClass string) ([]domain.RelatedItem, error)
}
