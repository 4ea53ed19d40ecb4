// Package neo4j implements the knowledge graph store over the Neo4j Bolt
// protocol. Nodes are garment items; RELATED_TO edges connect items sharing
// a cloth class.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/loomindex/loomindex/internal/domain"
)

// Config holds Neo4j connection parameters.
type Config struct {
	URI          string
	User         string
	Password     string
	QueryTimeout time.Duration // 0 = no per-query timeout
}

// Store wraps a Neo4j driver. The driver holds its own connection pool and
// is safe for concurrent use; sessions are created and closed per call.
type Store struct {
	driver       neo4j.DriverWithContext
	queryTimeout time.Duration
}

// NewStore creates the driver and verifies connectivity.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %s: %w", err, domain.ErrGraphUnavailable)
	}
	return &Store{driver: driver, queryTimeout: cfg.QueryTimeout}, nil
}

// Ping checks graph availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j ping: %s: %w", err, domain.ErrGraphUnavailable)
	}
	return nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("close neo4j driver: %w", err)
	}
	return nil
}

const relatedItemsQuery = `
MATCH (c:Cloth {cloth_class: $cloth_class})-[:RELATED_TO]->(related:Cloth)
RETURN related.title AS title, related.review AS review`

// RelatedItems returns (title, review) pairs of items linked to the given
// cloth class. The session is closed on every exit path.
func (s *Store) RelatedItems(ctx context.Context, clothClass string) ([]domain.RelatedItem, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, relatedItemsQuery, map[string]any{"cloth_class": clothClass})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("related items for %q: %s: %w", clothClass, err, domain.ErrGraphUnavailable)
	}

	recs, ok := records.([]*neo4j.Record)
	if !ok {
		return nil, fmt.Errorf("related items for %q: unexpected result type: %w",
			clothClass, domain.ErrGraphUnavailable)
	}

	items := make([]domain.RelatedItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, domain.RelatedItem{
			Title:  stringField(rec, "title"),
			Review: stringField(rec, "review"),
		})
	}
	return items, nil
}

const upsertItemsQuery = `
UNWIND $rows AS row
MERGE (item:Cloth {title: row.title})
SET item.review = row.review,
    item.cons_rating = row.cons_rating,
    item.cloth_class = row.cloth_class,
    item.materials = row.materials,
    item.construction = row.construction,
    item.color = row.color,
    item.finishing = row.finishing,
    item.durability = row.durability,
    item.combined_text = row.combined_text`

// UpsertItems merges one node per item, keyed by title, so re-import is
// idempotent per row.
func (s *Store) UpsertItems(ctx context.Context, items []domain.Item) error {
	rows := make([]map[string]any, len(items))
	for i, it := range items {
		rows[i] = map[string]any{
			"title":         it.Title,
			"review":        it.Review,
			"cons_rating":   it.ConsRating,
			"cloth_class":   it.ClothClass,
			"materials":     it.Materials,
			"construction":  it.Construction,
			"color":         it.Color,
			"finishing":     it.Finishing,
			"durability":    it.Durability,
			"combined_text": it.CombinedText,
		}
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsertItemsQuery, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("upsert %d items: %s: %w", len(items), err, domain.ErrGraphUnavailable)
	}
	return nil
}

const relateByClassQuery = `
MATCH (a:Cloth), (b:Cloth)
WHERE a.cloth_class = b.cloth_class AND a.cloth_class <> '' AND a <> b
MERGE (a)-[:RELATED_TO]->(b)`

// RelateByClass creates RELATED_TO edges between every pair of nodes sharing
// a cloth class. Run as a dedicated post-pass over the whole graph so the
// relationship closure is global, not scoped to one import batch.
func (s *Store) RelateByClass(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, relateByClassQuery, nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("relate by class: %s: %w", err, domain.ErrGraphUnavailable)
	}
	return nil
}

func stringField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
