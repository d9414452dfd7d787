package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"go.uber.org/zap"
)

// DocumentRepository implements the repositories.DocumentRepository interface
type DocumentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, kb_id, filename, file_size_bytes, content_preview, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.KnowledgeBaseID,
		doc.Filename,
		doc.FileSizeBytes,
		doc.ContentPreview,
		doc.Status,
		doc.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("document created",
		zap.String("id", doc.ID.String()),
		zap.String("kb_id", doc.KnowledgeBaseID.String()))
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `
		SELECT d.id, d.kb_id, d.filename, d.file_size_bytes, d.content_preview, d.status, d.created_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.doc_id = d.id) AS chunk_count
		FROM documents d
		WHERE d.id = $1
	`

	executor := GetExecutor(ctx, r.db)
	doc := &models.Document{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.KnowledgeBaseID,
		&doc.Filename,
		&doc.FileSizeBytes,
		&doc.ContentPreview,
		&doc.Status,
		&doc.CreatedAt,
		&doc.ChunkCount,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListByKnowledgeBase retrieves all documents of a knowledge base
func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Document, error) {
	query := `
		SELECT d.id, d.kb_id, d.filename, d.file_size_bytes, d.content_preview, d.status, d.created_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.doc_id = d.id) AS chunk_count
		FROM documents d
		WHERE d.kb_id = $1
		ORDER BY d.created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(
			&doc.ID,
			&doc.KnowledgeBaseID,
			&doc.Filename,
			&doc.FileSizeBytes,
			&doc.ContentPreview,
			&doc.Status,
			&doc.CreatedAt,
			&doc.ChunkCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// UpdateStatus moves a document through its lifecycle states
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error {
	query := `UPDATE documents SET status = $1 WHERE id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("document status updated",
		zap.String("id", id.String()),
		zap.String("status", string(status)))
	return nil
}

// Delete deletes a document row
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
	}

	return nil
}

// DeleteByKnowledgeBase deletes every document row of a knowledge base
func (r *DocumentRepository) DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error {
	query := `DELETE FROM documents WHERE kb_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, kbID); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	return nil
}
