// Package reranker provides re-ranking of retrieval candidates.
//
// A reranker sees the query and each candidate text together, which scores
// relevance more precisely than comparing embeddings. It only ever returns
// positions into the submitted candidates; callers rejoin those positions
// against whatever per-candidate data they hold.
package reranker

import (
	"context"
	"errors"
)

// ErrInvalidConfig indicates invalid reranker configuration.
var ErrInvalidConfig = errors.New("invalid reranker configuration")

// Result is one reranked candidate.
type Result struct {
	// Index is the position of the candidate in the submitted documents.
	Index int

	// RelevanceScore is the reranker's score for the candidate.
	RelevanceScore float32
}

// Reranker defines the interface for re-ranking candidate texts.
type Reranker interface {
	// Rerank scores documents against query and returns at most topK
	// results, most relevant first.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)
}
