// Package service composes chunking, embedding, storage and reranking into
// document ingestion and context retrieval.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/rossirpaulo/agihouse-hackathon/internal/embedder"
	"github.com/rossirpaulo/agihouse-hackathon/internal/ingestion"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
	"github.com/rossirpaulo/agihouse-hackathon/internal/reranker"
)

var (
	// ErrNoQueryEmbedding is returned by Retrieve when the query could not be
	// embedded. Neither the store nor the reranker is called.
	ErrNoQueryEmbedding = errors.New("no embedding for query")

	// ErrVectorMismatch is returned by Ingest when the embedder answered with
	// a different number of vectors than there are chunks.
	ErrVectorMismatch = errors.New("vector count does not match chunk count")
)

// RankedResult is one retrieved chunk handed to the answering model.
// Similarity is the store's score, never the reranker's.
type RankedResult struct {
	Title      string    `json:"title"`
	DocumentID uuid.UUID `json:"file_id"`
	Chunk      string    `json:"chunk"`
	Metadata   string    `json:"metadata"`
	Similarity float32   `json:"similarity"`
}

// IngestSummary reports a multi-document ingestion run.
type IngestSummary struct {
	Documents []uuid.UUID
	Failed    int
}

// RetrievalService ingests documents and retrieves ranked context for queries.
type RetrievalService struct {
	embedder     embedder.Embedder
	store        repository.DocumentStore
	reranker     reranker.Reranker
	chunkMaxSize int
	logger       *slog.Logger
}

// RetrievalServiceOption is a functional option for configuring RetrievalService.
type RetrievalServiceOption func(*RetrievalService)

// WithChunkMaxSize sets the maximum chunk length in characters.
func WithChunkMaxSize(n int) RetrievalServiceOption {
	return func(s *RetrievalService) {
		if n > 0 {
			s.chunkMaxSize = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) RetrievalServiceOption {
	return func(s *RetrievalService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRetrievalService creates a new RetrievalService
func NewRetrievalService(
	emb embedder.Embedder,
	store repository.DocumentStore,
	rr reranker.Reranker,
	opts ...RetrievalServiceOption,
) *RetrievalService {
	s := &RetrievalService{
		embedder:     emb,
		store:        store,
		reranker:     rr,
		chunkMaxSize: ingestion.DefaultMaxChunkSize,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ingest stores src as a document and its chunks with their vectors. The
// document id is returned whenever the document row was created, even if a
// later step failed. Chunks without a vector are skipped.
func (s *RetrievalService) Ingest(ctx context.Context, src ingestion.Source) (uuid.UUID, error) {
	title := ingestion.Normalize(src.Title)
	metadata := ingestion.Normalize(src.Metadata)
	content := ingestion.Normalize(src.Content)

	docID, err := s.store.StoreDocument(ctx, title, metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store document %q: %w", title, err)
	}
	logger := s.logger.With("document_id", docID, "title", title)

	var chunks []string
	for _, chunk := range ingestion.Chunk(content, s.chunkMaxSize) {
		if chunk = ingestion.Normalize(chunk); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		logger.Warn("document produced no chunks")
		return docID, nil
	}

	result, err := s.embedder.BatchEmbedDocuments(ctx, chunks)
	if err != nil {
		logger.Error("failed to generate embeddings", "chunks", len(chunks), "error", err)
		return docID, fmt.Errorf("failed to embed chunks of %q: %w", title, err)
	}
	if len(result.Vectors) != len(chunks) {
		logger.Error("embedding result misaligned with chunks",
			"chunks", len(chunks),
			"vectors", len(result.Vectors),
			"dropped_batches", result.DroppedBatches,
		)
		return docID, fmt.Errorf("%w: %d chunks, %d vectors", ErrVectorMismatch, len(chunks), len(result.Vectors))
	}

	stored := 0
	for i, chunk := range chunks {
		vector := result.Vectors[i]
		if vector == nil {
			logger.Warn("no embedding for chunk, skipping", "chunk", i+1, "total", len(chunks))
			continue
		}
		if err := s.store.StoreChunkEmbedding(ctx, docID, chunk, vector); err != nil {
			return docID, fmt.Errorf("failed to store chunk %d of %q: %w", i+1, title, err)
		}
		stored++
	}

	logger.Info("document ingested", "chunks", len(chunks), "stored", stored)
	return docID, nil
}

// IngestAll ingests sources one after another. A failing document is logged
// and counted; the run continues with the next one.
func (s *RetrievalService) IngestAll(ctx context.Context, sources []ingestion.Source) IngestSummary {
	var summary IngestSummary
	for _, src := range sources {
		if ctx.Err() != nil {
			summary.Failed++
			continue
		}
		docID, err := s.Ingest(ctx, src)
		if err != nil {
			s.logger.Error("failed to ingest document", "title", src.Title, "error", err)
			summary.Failed++
			continue
		}
		summary.Documents = append(summary.Documents, docID)
	}
	return summary
}

// Retrieve embeds query, collects matches above threshold, reranks them and
// returns the reranked subset ordered by original similarity. No matches or
// no reranked entries yield nil without error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, threshold float32, limit int) ([]RankedResult, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVector) == 0 {
		return nil, ErrNoQueryEmbedding
	}

	matches := s.store.QuerySimilar(ctx, queryVector, threshold, limit)
	if len(matches) == 0 {
		return nil, nil
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}

	reranked, err := s.reranker.Rerank(ctx, query, texts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank matches: %w", err)
	}

	return joinReranked(matches, reranked), nil
}

// Search is Retrieve for callers that answer without context on failure:
// errors are logged and reported as no results.
func (s *RetrievalService) Search(ctx context.Context, query string, threshold float32, limit int) []RankedResult {
	results, err := s.Retrieve(ctx, query, threshold, limit)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		return nil
	}
	return results
}

// joinReranked maps reranked positions back to their matches. Positions out
// of range are skipped.
func joinReranked(matches []repository.QueryMatch, reranked []reranker.Result) []RankedResult {
	if len(reranked) == 0 {
		return nil
	}

	results := make([]RankedResult, 0, len(reranked))
	for _, r := range reranked {
		if r.Index < 0 || r.Index >= len(matches) {
			continue
		}
		m := matches[r.Index]
		results = append(results, RankedResult{
			Title:      m.Title,
			DocumentID: m.DocumentID,
			Chunk:      m.Text,
			Metadata:   m.Metadata,
			Similarity: m.Similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results
}
