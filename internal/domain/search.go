package domain

// ScoredResult pairs a catalog item with its cosine similarity score for
// one query. Scores from degenerate vectors may be NaN; the transport layer
// sanitizes them before encoding.
type ScoredResult struct {
	Item  Item
	Score float64
}

// RelatedItem is one (title, review) pair discovered through the knowledge
// graph for a cloth class shared with a ranked result.
type RelatedItem struct {
	Title  string
	Review string
}

// SearchResponse aggregates everything one search request returns.
type SearchResponse struct {
	Query           string
	ExpandedQueries []string
	Results         []ScoredResult
	RelatedItems    []RelatedItem
}
