package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"go.uber.org/zap"
)

// ChunkRepository implements the repositories.ChunkRepository interface
type ChunkRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *DB, logger *zap.Logger) repositories.ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts a set of chunks
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO chunks (id, doc_id, kb_id, content, embedding, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	for _, chunk := range chunks {
		if _, err := executor.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.KnowledgeBaseID,
			chunk.Text,
			embeddingToArray(chunk.Embedding),
			chunk.Position,
		); err != nil {
			return fmt.Errorf("failed to create chunk %s: %w", chunk.ID, err)
		}
	}

	r.logger.Debug("chunks created", zap.Int("count", len(chunks)))
	return nil
}

// GetByIDs retrieves chunks by their IDs
func (r *ChunkRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Chunk, error) {
	if len(ids) == 0 {
		return []*models.Chunk{}, nil
	}

	query := `
		SELECT id, doc_id, kb_id, content, embedding, position
		FROM chunks
		WHERE id = ANY($1)
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// IDsByDocument returns the chunk IDs belonging to a document
func (r *ChunkRepository) IDsByDocument(ctx context.Context, docID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM chunks WHERE doc_id = $1 ORDER BY position`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk ids: %w", err)
	}

	return ids, nil
}

// ListIndexedByKnowledgeBase retrieves every searchable chunk of a knowledge base
func (r *ChunkRepository) ListIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Chunk, error) {
	query := `
		SELECT c.id, c.doc_id, c.kb_id, c.content, c.embedding, c.position
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE c.kb_id = $1 AND d.status = $2
		ORDER BY c.doc_id, c.position
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, kbID, models.DocumentStatusIndexed)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// CountIndexedByKnowledgeBase counts the chunks that should be searchable
func (r *ChunkRepository) CountIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE c.kb_id = $1 AND d.status = $2
	`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, kbID, models.DocumentStatusIndexed).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count indexed chunks: %w", err)
	}

	return count, nil
}

// CountByKnowledgeBase counts all chunks of a knowledge base regardless of state
func (r *ChunkRepository) CountByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM chunks WHERE kb_id = $1`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, kbID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	return count, nil
}

// DeleteByDocument deletes every chunk of a document
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	query := `DELETE FROM chunks WHERE doc_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, docID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// DeleteByKnowledgeBase deletes every chunk of a knowledge base
func (r *ChunkRepository) DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error {
	query := `DELETE FROM chunks WHERE kb_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, kbID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// embeddingToArray converts a float32 embedding into the pq array type used by
// the DOUBLE PRECISION[] column
func embeddingToArray(embedding []float32) pq.Float64Array {
	arr := make(pq.Float64Array, len(embedding))
	for i, v := range embedding {
		arr[i] = float64(v)
	}
	return arr
}

// arrayToEmbedding converts a stored pq array back into a float32 embedding
func arrayToEmbedding(arr pq.Float64Array) []float32 {
	embedding := make([]float32, len(arr))
	for i, v := range arr {
		embedding[i] = float32(v)
	}
	return embedding
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanChunks(rows rowScanner) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	for rows.Next() {
		chunk := &models.Chunk{}
		var embedding pq.Float64Array
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.KnowledgeBaseID,
			&chunk.Text,
			&embedding,
			&chunk.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.Embedding = arrayToEmbedding(embedding)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	if chunks == nil {
		chunks = []*models.Chunk{}
	}
	return chunks, nil
}
