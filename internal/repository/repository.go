// Package repository defines domain models and data access interfaces for
// documents and their embedded chunks.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Document is an ingested source document. Metadata is opaque free text.
type Document struct {
	ID        uuid.UUID
	Title     string
	Metadata  string
	CreatedAt time.Time
}

// Chunk is one embedded piece of a document.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// QueryMatch is a chunk returned by a similarity search, annotated with its
// document's title and metadata.
type QueryMatch struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Embedding  []float32
	Text       string
	Title      string
	Metadata   string
	Similarity float32
}

// DocumentRecords persists document rows.
type DocumentRecords interface {
	// StoreDocument creates a document and returns the identifier the store
	// assigned to it.
	StoreDocument(ctx context.Context, title, metadata string) (uuid.UUID, error)

	// GetDocument returns ErrNotFound for an unknown id.
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
}

// DocumentStore is the persistence used by ingestion and search.
type DocumentStore interface {
	DocumentRecords

	// StoreChunkEmbedding saves one chunk of documentID with its vector.
	StoreChunkEmbedding(ctx context.Context, documentID uuid.UUID, text string, vector []float32) error

	// QuerySimilar returns at most limit chunks whose cosine similarity to
	// vector is strictly greater than threshold, most similar first. Store
	// failures are logged and reported as no matches.
	QuerySimilar(ctx context.Context, vector []float32, threshold float32, limit int) []QueryMatch
}
