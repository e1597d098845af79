package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
)

// foreignKeyViolation is the SQLSTATE raised for a chunk of an unknown document.
const foreignKeyViolation = "23503"

// Store implements repository.DocumentStore with chunks and vectors kept in
// the embeddings table next to their documents.
type Store struct {
	*DocumentRepo
	db     *DB
	logger *slog.Logger
}

// NewStore creates a pgvector-backed document store.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		DocumentRepo: NewDocumentRepo(db),
		db:           db,
		logger:       logger,
	}
}

// StoreChunkEmbedding inserts one chunk with its vector. An unknown
// documentID yields repository.ErrNotFound.
func (s *Store) StoreChunkEmbedding(ctx context.Context, documentID uuid.UUID, text string, vector []float32) error {
	query := `
		INSERT INTO embeddings (file_id, text, embedding)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.Pool.Exec(ctx, query, documentID, text, pgvector.NewVector(vector))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("failed to store chunk of document %s: %w", documentID, repository.ErrNotFound)
		}
		return fmt.Errorf("failed to store chunk embedding: %w", err)
	}
	return nil
}

// QuerySimilar runs the query_embeddings function.
func (s *Store) QuerySimilar(ctx context.Context, vector []float32, threshold float32, limit int) []repository.QueryMatch {
	query := `
		SELECT id, file_id, embedding::text, text, title, metadata, similarity
		FROM query_embeddings($1, $2, $3)
	`
	rows, err := s.db.Pool.Query(ctx, query, pgvector.NewVector(vector), threshold, limit)
	if err != nil {
		s.logger.Error("similarity query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var matches []repository.QueryMatch
	for rows.Next() {
		var (
			m          repository.QueryMatch
			embedding  pgvector.Vector
			similarity float64
		)
		if err := rows.Scan(&m.ID, &m.DocumentID, &embedding, &m.Text, &m.Title, &m.Metadata, &similarity); err != nil {
			s.logger.Error("failed to scan similarity match", "error", err)
			return nil
		}
		m.Embedding = embedding.Slice()
		m.Similarity = float32(similarity)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("similarity query failed", "error", err)
		return nil
	}

	return matches
}

// Ensure Store implements DocumentStore interface.
var _ repository.DocumentStore = (*Store)(nil)
