package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrCorpusEmpty signals that the dataset produced no items.
	ErrCorpusEmpty = errors.New("corpus is empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGraphUnavailable signals a knowledge graph connection or query failure.
	ErrGraphUnavailable = errors.New("knowledge graph unavailable")
)
