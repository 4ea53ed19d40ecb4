// Offline importer: loads the garment dataset into the Neo4j knowledge
// graph. Nodes are merged in batches, then a post-pass creates RELATED_TO
// edges between items sharing a cloth class. Re-running is idempotent.
//
// Usage:
//
//	loomindex-import -dataset data/cleaned_dataset.csv -batch-size 500
//
// Env vars:
//
//	NEO4J_URI      — bolt URI (default: bolt://localhost:7687)
//	NEO4J_USER     — username (default: neo4j)
//	NEO4J_PASSWORD — password
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loomindex/loomindex/internal/corpus"
	graphNeo4j "github.com/loomindex/loomindex/internal/graph/neo4j"
)

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatal(err)
	}
}

type config struct {
	dataset     string
	batchSize   int
	skipRelated bool
}

func parseFlags() config {
	cfg := config{}
	flag.StringVar(&cfg.dataset, "dataset", "data/cleaned_dataset.csv", "dataset file (.csv or .parquet)")
	flag.IntVar(&cfg.batchSize, "batch-size", 500, "items per UNWIND batch")
	flag.BoolVar(&cfg.skipRelated, "skip-related", false, "skip the RELATED_TO edge post-pass")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg config) error {
	start := time.Now()

	log.Println("=== Stage 1: Read dataset ===")
	items, err := corpus.Load(cfg.dataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	log.Printf("dataset: %d items from %s", len(items), cfg.dataset)

	store, err := graphNeo4j.NewStore(ctx, graphNeo4j.Config{
		URI:      env("NEO4J_URI", "bolt://localhost:7687"),
		User:     env("NEO4J_USER", "neo4j"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	})
	if err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
	}
	defer store.Close(context.Background())

	log.Println("=== Stage 2: Upsert nodes ===")
	for offset := 0; offset < len(items); offset += cfg.batchSize {
		end := offset + cfg.batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := store.UpsertItems(ctx, items[offset:end]); err != nil {
			return fmt.Errorf("upsert items %d..%d: %w", offset, end, err)
		}
		log.Printf("nodes: %d/%d", end, len(items))
	}

	if cfg.skipRelated {
		log.Println("edges: skipping (per flag)")
	} else {
		log.Println("=== Stage 3: Relate by class ===")
		if err := store.RelateByClass(ctx); err != nil {
			return fmt.Errorf("relate by class: %w", err)
		}
		log.Println("edges: RELATED_TO pass complete")
	}

	elapsed := time.Since(start)
	rate := float64(len(items)) / elapsed.Seconds()
	log.Printf("DONE in %s (%.0f items/sec)", elapsed.Round(time.Second), rate)

	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
