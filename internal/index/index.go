// Package index holds the in-memory corpus embedding matrix and scores
// queries against it with cosine similarity. There is no ANN structure:
// every search is a full scan over the matrix, which is the intended
// trade-off for a catalog-sized corpus.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/loomindex/loomindex/internal/domain"
)

// Index owns the corpus embedding matrix. Row i corresponds to item i.
// Immutable after Build; safe for concurrent searches.
type Index struct {
	items    []domain.Item
	matrix   [][]float32
	norms    []float64
	embedder domain.Embedder
}

// Build embeds every item's combined text and retains the resulting matrix.
// This is the single expensive startup step; it must complete before any
// search is served. texts are embedded in chunks of batchSize.
func Build(ctx context.Context, items []domain.Item, embedder domain.Embedder, batchSize int) (*Index, error) {
	if len(items) == 0 {
		return nil, domain.ErrCorpusEmpty
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	matrix := make([][]float32, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		texts := make([]string, 0, end-start)
		for _, it := range items[start:end] {
			texts = append(texts, it.CombinedText)
		}

		res, err := batchEmbed(ctx, embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embed corpus rows %d..%d: %w", start, end, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embed corpus rows %d..%d: got %d vectors for %d texts",
				start, end, len(res.Embeddings), len(texts))
		}
		matrix = append(matrix, res.Embeddings...)
	}

	norms := make([]float64, len(matrix))
	for i, rowVec := range matrix {
		norms[i] = l2Norm(rowVec)
	}

	return &Index{items: items, matrix: matrix, norms: norms, embedder: embedder}, nil
}

func batchEmbed(ctx context.Context, e domain.Embedder, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, e, texts)
}

// Size returns the number of corpus rows.
func (idx *Index) Size() int { return len(idx.items) }

// Dimensions returns the embedding width, or 0 for an empty matrix.
func (idx *Index) Dimensions() int {
	if len(idx.matrix) == 0 {
		return 0
	}
	return len(idx.matrix[0])
}

// Search embeds the query, scores it against every corpus row and returns
// the full ranked sequence, best first. Ties keep corpus order (stable sort).
// Degenerate vectors yield NaN scores, which sort last and are surfaced to
// the caller for downstream sanitization rather than special-cased here.
func (idx *Index) Search(ctx context.Context, query string) ([]domain.ScoredResult, error) {
	res, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scores := idx.cosineScores(res.Embedding)

	ranked := make([]domain.ScoredResult, len(scores))
	for i, score := range scores {
		ranked[i] = domain.ScoredResult{Item: idx.items[i], Score: score}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := ranked[a].Score, ranked[b].Score
		if math.IsNaN(sa) {
			return false
		}
		if math.IsNaN(sb) {
			return true
		}
		return sa > sb
	})
	return ranked, nil
}

// cosineScores computes dot(row, query) / (|row| * |query|) for every row.
// A zero norm on either side produces NaN.
func (idx *Index) cosineScores(query []float32) []float64 {
	qnorm := l2Norm(query)

	scores := make([]float64, len(idx.matrix))
	for i, rowVec := range idx.matrix {
		scores[i] = dot(rowVec, query) / (idx.norms[i] * qnorm)
	}
	return scores
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
