// Package vectorstore provides a document store whose chunk vectors live in a
// dedicated vector index while document rows stay in the relational store.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
)

// Point is one chunk as it is kept in the index. Title and Metadata are
// copied from the owning document so searches need no join.
type Point struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Text       string
	Title      string
	Metadata   string
	CreatedAt  time.Time
	Vector     []float32
}

// Hit is a point returned by a similarity search.
type Hit struct {
	Point
	Score float32
}

// Index defines the vector index operations the store needs.
type Index interface {
	// Upsert inserts or replaces a point.
	Upsert(ctx context.Context, point Point) error

	// Search returns at most limit points scoring at least minScore against
	// vector, best first.
	Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]Hit, error)
}

// Store implements repository.DocumentStore over DocumentRecords and an Index.
type Store struct {
	docs   repository.DocumentRecords
	index  Index
	logger *slog.Logger
}

// NewStore creates a store that keeps documents in docs and vectors in index.
func NewStore(docs repository.DocumentRecords, index Index, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{docs: docs, index: index, logger: logger}
}

// StoreDocument creates the document row.
func (s *Store) StoreDocument(ctx context.Context, title, metadata string) (uuid.UUID, error) {
	return s.docs.StoreDocument(ctx, title, metadata)
}

// GetDocument returns repository.ErrNotFound for an unknown id.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*repository.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// StoreChunkEmbedding indexes one chunk of documentID. The document must
// exist; its title and metadata are stored with the point.
func (s *Store) StoreChunkEmbedding(ctx context.Context, documentID uuid.UUID, text string, vector []float32) error {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	point := Point{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Text:       text,
		Title:      doc.Title,
		Metadata:   doc.Metadata,
		CreatedAt:  time.Now().UTC(),
		Vector:     vector,
	}
	if err := s.index.Upsert(ctx, point); err != nil {
		return fmt.Errorf("failed to store chunk embedding: %w", err)
	}
	return nil
}

// QuerySimilar searches the index. Hits equal to threshold are dropped since
// the index bound is inclusive.
func (s *Store) QuerySimilar(ctx context.Context, vector []float32, threshold float32, limit int) []repository.QueryMatch {
	hits, err := s.index.Search(ctx, vector, threshold, limit)
	if err != nil {
		s.logger.Error("similarity query failed", "error", err)
		return nil
	}

	var matches []repository.QueryMatch
	for _, hit := range hits {
		if hit.Score <= threshold {
			continue
		}
		matches = append(matches, repository.QueryMatch{
			ID:         hit.ID,
			DocumentID: hit.DocumentID,
			Embedding:  hit.Vector,
			Text:       hit.Text,
			Title:      hit.Title,
			Metadata:   hit.Metadata,
			Similarity: hit.Score,
		})
	}
	return matches
}

// Ensure Store implements DocumentStore interface.
var _ repository.DocumentStore = (*Store)(nil)
