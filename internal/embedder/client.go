package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultBatchSize is the number of texts sent per provider call.
const DefaultBatchSize = 128

// Client implements Embedder on top of a Provider.
type Client struct {
	provider    Provider
	batchSize   int
	alignFailed bool
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithBatchSize sets the number of texts per provider call.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithAlignedBatches makes a batch that fails outright contribute one absent
// vector per text, so BatchResult.Vectors always lines up with the input.
// Without it the failed batch is left out of the result entirely.
func WithAlignedBatches(aligned bool) ClientOption {
	return func(c *Client) {
		c.alignFailed = aligned
	}
}

// WithLogger sets the logger used to report dropped batches.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an embedding client backed by provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:  provider,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EmbedQuery generates the embedding of a search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text, InputTypeQuery)
}

// EmbedDocument generates the embedding of a single document text.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text, InputTypeDocument)
}

func (c *Client) embedOne(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	vectors, err := c.provider.Embed(ctx, []string{text}, inputType)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", inputType, err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

// BatchEmbedDocuments embeds texts in sequential batches of the configured
// size. Newlines are replaced by spaces before submission.
//
// A batch whose call fails is logged and skipped, and the run goes on. A call
// that returns no data at all aborts the run with ErrNoEmbeddings, whatever
// earlier batches returned. Texts the provider gave no vector for are kept as
// nil entries and counted in Failed.
func (c *Client) BatchEmbedDocuments(ctx context.Context, texts []string) (*BatchResult, error) {
	result := &BatchResult{Vectors: make([][]float32, 0, len(texts))}

	for start := 0; start < len(texts); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+c.batchSize, len(texts))
		batch := make([]string, end-start)
		for i, text := range texts[start:end] {
			batch[i] = strings.ReplaceAll(text, "\n", " ")
		}

		vectors, err := c.provider.Embed(ctx, batch, InputTypeDocument)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.DroppedBatches++
			c.logger.Error("embedding batch failed",
				"model", c.provider.ModelName(),
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			if c.alignFailed {
				for range batch {
					result.Vectors = append(result.Vectors, nil)
				}
				result.Failed += len(batch)
			}
			continue
		}

		if len(vectors) == 0 {
			c.logger.Error("no embeddings created",
				"model", c.provider.ModelName(),
				"batch_start", start,
			)
			return nil, ErrNoEmbeddings
		}

		for _, vector := range vectors {
			if len(vector) == 0 {
				result.Failed++
				vector = nil
			}
			result.Vectors = append(result.Vectors, vector)
		}
	}

	return result, nil
}

// Ensure Client implements Embedder interface.
var _ Embedder = (*Client)(nil)
