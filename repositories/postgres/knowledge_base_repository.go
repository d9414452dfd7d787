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

// KnowledgeBaseRepository implements the repositories.KnowledgeBaseRepository interface
type KnowledgeBaseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewKnowledgeBaseRepository creates a new knowledge base repository
func NewKnowledgeBaseRepository(db *DB, logger *zap.Logger) repositories.KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new knowledge base
func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	query := `
		INSERT INTO knowledge_bases (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		kb.ID,
		kb.Name,
		kb.Description,
		kb.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	r.logger.Debug("knowledge base created", zap.String("id", kb.ID.String()))
	return nil
}

// GetByID retrieves a knowledge base by ID
func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	query := `
		SELECT kb.id, kb.name, kb.description, kb.created_at,
		       (SELECT COUNT(*) FROM documents d WHERE d.kb_id = kb.id) AS doc_count
		FROM knowledge_bases kb
		WHERE kb.id = $1
	`

	executor := GetExecutor(ctx, r.db)
	kb := &models.KnowledgeBase{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&kb.ID,
		&kb.Name,
		&kb.Description,
		&kb.CreatedAt,
		&kb.DocCount,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("knowledge base %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}

	return kb, nil
}

// List retrieves all knowledge bases with their derived document counts
func (r *KnowledgeBaseRepository) List(ctx context.Context) ([]*models.KnowledgeBase, error) {
	query := `
		SELECT kb.id, kb.name, kb.description, kb.created_at,
		       (SELECT COUNT(*) FROM documents d WHERE d.kb_id = kb.id) AS doc_count
		FROM knowledge_bases kb
		ORDER BY kb.created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	defer rows.Close()

	var kbs []*models.KnowledgeBase
	for rows.Next() {
		kb := &models.KnowledgeBase{}
		if err := rows.Scan(&kb.ID, &kb.Name, &kb.Description, &kb.CreatedAt, &kb.DocCount); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
		}
		kbs = append(kbs, kb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge bases: %w", err)
	}

	return kbs, nil
}

// Delete deletes a knowledge base row
func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM knowledge_bases WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("knowledge base %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("knowledge base deleted", zap.String("id", id.String()))
	return nil
}
