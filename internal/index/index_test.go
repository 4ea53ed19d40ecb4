package index

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/loomindex/loomindex/internal/domain"
)

// mockEmbedder maps texts to fixed vectors.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text]}, nil
}

func buildTestIndex(t *testing.T) (*Index, *mockEmbedder) {
	t.Helper()

	items := []domain.Item{
		{Title: "a", CombinedText: "alpha"},
		{Title: "b", CombinedText: "beta"},
		{Title: "c", CombinedText: "gamma"},
	}
	emb := &mockEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"gamma": {1, 1},
		"query": {1, 0},
		"zero":  {0, 0},
	}}

	idx, err := Build(context.Background(), items, emb, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx, emb
}

func TestBuild_EmptyCorpus(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{}}
	_, err := Build(context.Background(), nil, emb, 10)
	if !errors.Is(err, domain.ErrCorpusEmpty) {
		t.Fatalf("expected ErrCorpusEmpty, got %v", err)
	}
}

func TestBuild_EmbedsEveryItem(t *testing.T) {
	idx, emb := buildTestIndex(t)

	if idx.Size() != 3 {
		t.Errorf("expected size 3, got %d", idx.Size())
	}
	if idx.Dimensions() != 2 {
		t.Errorf("expected 2 dimensions, got %d", idx.Dimensions())
	}
	// No BatchEmbed on the mock, so the fallback embeds one by one.
	if emb.calls != 3 {
		t.Errorf("expected 3 embed calls, got %d", emb.calls)
	}
}

func TestSearch_RanksDescending(t *testing.T) {
	idx, _ := buildTestIndex(t)

	ranked, err := idx.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected full ranked sequence of 3, got %d", len(ranked))
	}
	// query = (1,0): alpha scores 1.0, gamma ~0.707, beta 0.
	if ranked[0].Item.Title != "a" || ranked[1].Item.Title != "c" || ranked[2].Item.Title != "b" {
		t.Errorf("unexpected ranking: %s %s %s",
			ranked[0].Item.Title, ranked[1].Item.Title, ranked[2].Item.Title)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestSearch_SelfSimilarityIsOne(t *testing.T) {
	idx, _ := buildTestIndex(t)

	ranked, err := idx.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if math.Abs(ranked[0].Score-1.0) > 1e-9 {
		t.Errorf("expected self-similarity ~1.0, got %v", ranked[0].Score)
	}
}

func TestSearch_ZeroVectorYieldsNaN(t *testing.T) {
	idx, _ := buildTestIndex(t)

	ranked, err := idx.Search(context.Background(), "zero")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// A zero-norm query makes every score NaN; surfaced, not raised.
	for i, r := range ranked {
		if !math.IsNaN(r.Score) {
			t.Errorf("expected NaN at %d, got %v", i, r.Score)
		}
	}
}

func TestSearch_TiesKeepCorpusOrder(t *testing.T) {
	items := []domain.Item{
		{Title: "first", CombinedText: "t1"},
		{Title: "second", CombinedText: "t2"},
	}
	emb := &mockEmbedder{vectors: map[string][]float32{
		"t1": {1, 0},
		"t2": {2, 0}, // same direction, same cosine
		"q":  {1, 0},
	}}
	idx, err := Build(context.Background(), items, emb, 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ranked, err := idx.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ranked[0].Item.Title != "first" || ranked[1].Item.Title != "second" {
		t.Errorf("tie broke corpus order: %s, %s", ranked[0].Item.Title, ranked[1].Item.Title)
	}
}

func TestSearch_EmbedErrorPropagates(t *testing.T) {
	idx, emb := buildTestIndex(t)
	emb.err = errors.New("provider down")

	if _, err := idx.Search(context.Background(), "query"); err == nil {
		t.Fatal("expected error")
	}
}
