package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/loomindex/loomindex/internal/db"
	"github.com/loomindex/loomindex/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		setCalled = true
		return nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !setCalled {
		t.Fatal("expected SET to be called for cache put")
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.embedCalls != 0 {
		t.Fatalf("inner embedder should not be called on hit")
	}
}

func TestEmbed_CacheOutageFallsBackToCompute(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.7},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	// Both GET and SET fail; the request must still succeed.
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection refused")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		return &db.Error{Op: db.OpSet, Err: errors.New("connection refused")}
	}

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("cache outage must not fail the request: %v", err)
	}
	if len(result.Embedding) != 1 || result.Embedding[0] != 0.7 {
		t.Fatalf("expected computed vector, got %v", result.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	if _, err := ce.Embed(context.Background(), "test text"); err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestGetOrCompute_RoundTrip(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.25, -1.5, 3.0},
	}}
	ce := New(inner, newMemKVStore(), "loomindex:", nil, zap.NewNop())
	ctx := context.Background()

	first, ok, err := ce.GetOrCompute(ctx, "item:42", "a floral dress")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a vector")
	}

	// Second call without text must return the stored vector bit-for-bit.
	second, ok, err := ce.GetOrCompute(ctx, "item:42", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("vector differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected exactly one compute, got %d", inner.embedCalls)
	}
}

func TestGetOrCompute_MissWithoutTextIsAbsent(t *testing.T) {
	inner := &mockEmbedder{}
	ce := New(inner, newMemKVStore(), "loomindex:", nil, zap.NewNop())

	vec, ok, err := ce.GetOrCompute(context.Background(), "unknown", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || vec != nil {
		t.Fatalf("expected absent, got ok=%v vec=%v", ok, vec)
	}
	if inner.embedCalls != 0 {
		t.Errorf("nothing should be computed without text")
	}
}

func TestBatchEmbed_MixedHitsAndMisses(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{9, 9},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	mem := newMemKVStore()
	ce := New(inner, mem, "loomindex:", nil, zap.NewNop())
	ctx := context.Background()

	// Pre-populate "warm" via a single Embed.
	if _, err := ce.Embed(ctx, "warm"); err != nil {
		t.Fatal(err)
	}
	inner.embedCalls = 0

	res, err := ce.BatchEmbed(ctx, []string{"warm", "cold"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(res.Embeddings))
	}
	// Only the miss reaches the provider.
	if inner.embedCalls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.embedCalls)
	}
	if res.TotalTokens != 5 {
		t.Errorf("expected tokens from misses only, got %d", res.TotalTokens)
	}
}

func TestVectorSerialization(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 0.0001}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch")
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d differs: %v vs %v", i, in[i], out[i])
		}
	}

	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}
