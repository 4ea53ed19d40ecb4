package search

import (
	"context"
	"errors"
	"testing"

	"github.com/loomindex/loomindex/internal/domain"
)

// --- Mocks ---

type mockIndex struct {
	ranked  map[string][]domain.ScoredResult
	err     error
	queries []string
}

func (m *mockIndex) Search(_ context.Context, query string) ([]domain.ScoredResult, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.ranked[query], nil
}

type mockExpander struct {
	variants []string
}

func (m *mockExpander) Expand(query string) []string {
	if m.variants != nil {
		return m.variants
	}
	return []string{query}
}

type mockEnricher struct {
	related []domain.RelatedItem
	err     error
	got     []domain.ScoredResult
}

func (m *mockEnricher) Enrich(_ context.Context, results []domain.ScoredResult) ([]domain.RelatedItem, error) {
	m.got = results
	return m.related, m.err
}

func scored(title string, score float64) domain.ScoredResult {
	return domain.ScoredResult{Item: domain.Item{Title: title, ClothClass: "Dresses"}, Score: score}
}

// --- Tests ---

func TestSearch_NoExpansion(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"red dress": {scored("a", 0.9), scored("b", 0.5)},
	}}
	svc := New(idx, &mockExpander{variants: []string{"red dress", "crimson"}}, nil, 5)

	resp, err := svc.Search(context.Background(), "red dress", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ExpandedQueries) != 1 || resp.ExpandedQueries[0] != "red dress" {
		t.Fatalf("expected [original query] when expand=false, got %v", resp.ExpandedQueries)
	}
	if len(idx.queries) != 1 {
		t.Errorf("expected one index search, got %d", len(idx.queries))
	}
}

func TestSearch_FanOutMergesAndRanks(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"dress": {scored("a", 0.9), scored("b", 0.2)},
		"frock": {scored("c", 0.7), scored("a", 0.4)},
	}}
	exp := &mockExpander{variants: []string{"dress", "frock"}}
	svc := New(idx, exp, nil, 5)

	resp, err := svc.Search(context.Background(), "dress", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	titles := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		titles[i] = r.Item.Title
	}
	// Merged pool ranked across variants: a(0.9), c(0.7), a(0.4), b(0.2).
	want := []string{"a", "c", "a", "b"}
	if len(titles) != len(want) {
		t.Fatalf("expected %v, got %v", want, titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, titles)
		}
	}
}

func TestSearch_DuplicatesAcrossVariantsPreserved(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"q1": {scored("same", 0.9)},
		"q2": {scored("same", 0.8)},
	}}
	svc := New(idx, &mockExpander{variants: []string{"q1", "q2"}}, nil, 5)

	resp, err := svc.Search(context.Background(), "q1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected the same item twice, got %d results", len(resp.Results))
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	ranked := make([]domain.ScoredResult, 10)
	for i := range ranked {
		ranked[i] = scored("t", float64(10-i)/10)
	}
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{"q": ranked}}
	svc := New(idx, nil, nil, 5)

	resp, err := svc.Search(context.Background(), "q", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Errorf("results not descending at %d", i)
		}
	}
}

func TestSearch_TiedScoresKeepInsertionOrder(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"q1": {scored("first", 0.5)},
		"q2": {scored("second", 0.5)},
	}}
	svc := New(idx, &mockExpander{variants: []string{"q1", "q2"}}, nil, 5)

	resp, err := svc.Search(context.Background(), "q1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Results[0].Item.Title != "first" || resp.Results[1].Item.Title != "second" {
		t.Errorf("tie broke insertion order: %s, %s",
			resp.Results[0].Item.Title, resp.Results[1].Item.Title)
	}
}

func TestSearch_EnrichmentFailureDegrades(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"q": {scored("a", 0.9)},
	}}
	en := &mockEnricher{err: errors.New("graph down")}
	svc := New(idx, nil, en, 5)

	resp, err := svc.Search(context.Background(), "q", false)
	if err != nil {
		t.Fatalf("graph outage must not fail the request: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected ranked results, got %d", len(resp.Results))
	}
	if len(resp.RelatedItems) != 0 {
		t.Fatalf("expected empty related items, got %v", resp.RelatedItems)
	}
}

func TestSearch_EnricherSeesTruncatedResults(t *testing.T) {
	ranked := make([]domain.ScoredResult, 10)
	for i := range ranked {
		ranked[i] = scored("t", float64(10-i)/10)
	}
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{"q": ranked}}
	en := &mockEnricher{related: []domain.RelatedItem{{Title: "r"}}}
	svc := New(idx, nil, en, 5)

	resp, err := svc.Search(context.Background(), "q", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(en.got) != 5 {
		t.Errorf("enricher must see the truncated top-K, saw %d", len(en.got))
	}
	if len(resp.RelatedItems) != 1 || resp.RelatedItems[0].Title != "r" {
		t.Errorf("unexpected related items: %v", resp.RelatedItems)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := New(&mockIndex{}, nil, nil, 5)

	_, err := svc.Search(context.Background(), "   ", true)
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearch_IndexErrorPropagates(t *testing.T) {
	idx := &mockIndex{err: errors.New("embed failed")}
	svc := New(idx, nil, nil, 5)

	if _, err := svc.Search(context.Background(), "q", false); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_Deterministic(t *testing.T) {
	idx := &mockIndex{ranked: map[string][]domain.ScoredResult{
		"q1": {scored("a", 0.9), scored("b", 0.3)},
		"q2": {scored("c", 0.6)},
	}}
	svc := New(idx, &mockExpander{variants: []string{"q1", "q2"}}, nil, 5)

	first, err := svc.Search(context.Background(), "q1", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Search(context.Background(), "q1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Results) != len(second.Results) {
		t.Fatal("result count differs between identical requests")
	}
	for i := range first.Results {
		if first.Results[i] != second.Results[i] {
			t.Errorf("result %d differs between identical requests", i)
		}
	}
}
