package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
)

// DocumentRepo implements repository.DocumentRecords
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// StoreDocument inserts a document row. The id is generated by the database.
func (r *DocumentRepo) StoreDocument(ctx context.Context, title, metadata string) (uuid.UUID, error) {
	query := `
		INSERT INTO files (title, metadata)
		VALUES ($1, $2)
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.Pool.QueryRow(ctx, query, title, metadata).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store document: %w", err)
	}
	return id, nil
}

// GetDocument retrieves a document by ID
func (r *DocumentRepo) GetDocument(ctx context.Context, id uuid.UUID) (*repository.Document, error) {
	query := `
		SELECT id, title, metadata, created_at
		FROM files
		WHERE id = $1
	`
	var doc repository.Document
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&doc.ID, &doc.Title, &doc.Metadata, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// Ensure DocumentRepo implements DocumentRecords interface.
var _ repository.DocumentRecords = (*DocumentRepo)(nil)
