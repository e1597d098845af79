// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
)

var (
	// ErrNoEmbeddings is returned by BatchEmbedDocuments when the provider
	// answers a batch with no data at all.
	ErrNoEmbeddings = errors.New("no embeddings returned by provider")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embedder configuration")
)

// InputType tells the provider whether a text is a search query or a document.
// Query and document embeddings are tuned to align with each other, so the
// two must not be mixed up.
type InputType string

const (
	InputTypeQuery    InputType = "query"
	InputTypeDocument InputType = "document"
)

// Embedder defines the interface for text embedding services.
// A nil vector with a nil error means the provider returned no embedding.
type Embedder interface {
	// EmbedQuery generates the embedding of a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocument generates the embedding of a single document text.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// BatchEmbedDocuments embeds many document texts in fixed-size batches.
	BatchEmbedDocuments(ctx context.Context, texts []string) (*BatchResult, error)
}

// Provider performs one embedding call against an external model.
type Provider interface {
	// Embed returns one entry per input; a nil entry means the provider gave
	// no vector for that input. An empty result means the provider returned
	// no data for the whole call.
	Embed(ctx context.Context, inputs []string, inputType InputType) ([][]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// BatchResult is the outcome of BatchEmbedDocuments.
type BatchResult struct {
	// Vectors holds one entry per embedded text; nil marks an absent vector.
	Vectors [][]float32

	// Failed counts absent vectors.
	Failed int

	// DroppedBatches counts provider calls that failed outright.
	DroppedBatches int
}
