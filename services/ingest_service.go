package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/internal/chunker"
	"github.com/upb/knowledge-engine/internal/vectorindex"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"github.com/upb/knowledge-engine/services/providers"
)

// FileStore retains raw uploaded files on disk
type FileStore interface {
	Save(kbID, docID uuid.UUID, filename string, data []byte) (string, error)
	RemoveDocument(kbID, docID uuid.UUID) error
	RemoveKnowledgeBase(kbID uuid.UUID) error
}

// IngestConfig holds chunking and embedding batch parameters
type IngestConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingBatchSize int
}

// IngestService turns uploaded documents into indexed, searchable chunks.
// Ingestion is all-or-nothing per document: either the document ends up
// indexed with all its chunks persisted and searchable, or nothing of it
// remains visible.
type IngestService struct {
	kbRepo    repositories.KnowledgeBaseRepository
	docRepo   repositories.DocumentRepository
	chunkRepo repositories.ChunkRepository
	txManager repositories.TransactionManager
	embedder  providers.EmbeddingProvider
	indexes   *vectorindex.Manager
	files     FileStore
	config    IngestConfig
	logger    *zap.Logger
}

// NewIngestService creates a new ingestion service
func NewIngestService(
	repos *repositories.Repositories,
	txManager repositories.TransactionManager,
	embedder providers.EmbeddingProvider,
	indexes *vectorindex.Manager,
	files FileStore,
	config IngestConfig,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		kbRepo:    repos.KnowledgeBases,
		docRepo:   repos.Documents,
		chunkRepo: repos.Chunks,
		txManager: txManager,
		embedder:  embedder,
		indexes:   indexes,
		files:     files,
		config:    config,
		logger:    logger,
	}
}

// IngestDocument chunks, embeds and indexes one document into a knowledge
// base. raw is the original file content as uploaded; content is its extracted
// text. No state is persisted until every chunk has an embedding.
func (s *IngestService) IngestDocument(ctx context.Context, kbID uuid.UUID, filename string, raw []byte, content string) (*models.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	if _, err := s.kbRepo.GetByID(ctx, kbID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrKnowledgeBaseNotFound
		}
		return nil, NewDomainError(ErrorTypeInternal, "failed to load knowledge base", err)
	}

	pieces, err := chunker.Split(content, s.config.ChunkSize, s.config.ChunkOverlap)
	if err != nil {
		return nil, NewDomainError(ErrorTypeValidation, "invalid chunking parameters", err)
	}

	doc := models.NewDocument(kbID, filename, int64(len(raw)), content)

	// Chunk IDs are assigned before embedding so a retried ingest never
	// leaves two generations of the same chunk behind.
	chunks := make([]*models.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.Chunk{
			ID:              uuid.New(),
			DocumentID:      doc.ID,
			KnowledgeBaseID: kbID,
			Text:            piece.Text,
			Position:        piece.Position,
		}
		texts[i] = piece.Text
	}

	// Embed everything up front: an embedding failure must leave no trace.
	vectors, err := s.embedBatched(ctx, texts)
	if err != nil {
		s.logger.Error("embedding failed, aborting ingest",
			zap.String("kb_id", kbID.String()),
			zap.String("filename", filename),
			zap.Error(err))
		return nil, NewDomainError(ErrorTypeExternal, "embedding provider failed", err)
	}
	for i := range chunks {
		if len(vectors[i]) != s.indexes.Dimension() {
			return nil, NewDomainError(ErrorTypeExternal,
				fmt.Sprintf("embedding provider returned dimension %d, index expects %d", len(vectors[i]), s.indexes.Dimension()), nil)
		}
		chunks[i].Embedding = vectors[i]
	}

	unlock := s.indexes.LockWrites(kbID)
	defer unlock()

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.chunkRepo.CreateBatch(txCtx, chunks); err != nil {
			return fmt.Errorf("create chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to persist document", err)
	}

	if err := s.finishIngest(ctx, doc, chunks, raw, filename); err != nil {
		s.rollbackIngest(ctx, doc)
		return nil, err
	}

	doc.Status = models.DocumentStatusIndexed
	doc.ChunkCount = len(chunks)

	s.logger.Info("document ingested",
		zap.String("kb_id", kbID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))

	return doc, nil
}

// finishIngest completes the post-transaction steps: raw file retention,
// index insertion and the status flip to indexed.
func (s *IngestService) finishIngest(ctx context.Context, doc *models.Document, chunks []*models.Chunk, raw []byte, filename string) error {
	if len(raw) > 0 {
		if _, err := s.files.Save(doc.KnowledgeBaseID, doc.ID, filename, raw); err != nil {
			return NewDomainError(ErrorTypeInternal, "failed to retain raw file", err)
		}
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorindex.Entry{ChunkID: chunk.ID, Vector: chunk.Embedding}
	}
	index := s.indexes.Get(doc.KnowledgeBaseID)
	if err := index.InsertBatch(entries); err != nil {
		return NewDomainError(ErrorTypeInternal, "failed to index chunks", err)
	}

	if err := s.docRepo.UpdateStatus(ctx, doc.ID, models.DocumentStatusIndexed); err != nil {
		chunkIDs := make([]uuid.UUID, len(chunks))
		for i, chunk := range chunks {
			chunkIDs[i] = chunk.ID
		}
		index.RemoveBatch(chunkIDs)
		return NewDomainError(ErrorTypeInternal, "failed to mark document indexed", err)
	}
	return nil
}

// rollbackIngest removes everything a failed ingest left behind and marks the
// document failed so the upload is never half-visible. The cleanup runs on a
// detached context: a cancelled request must not strand the persisted rows.
func (s *IngestService) rollbackIngest(ctx context.Context, doc *models.Document) {
	ctx = context.WithoutCancel(ctx)

	if err := s.docRepo.UpdateStatus(ctx, doc.ID, models.DocumentStatusFailed); err != nil {
		s.logger.Error("failed to mark document failed",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	if err := s.chunkRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		s.logger.Error("failed to delete chunks of failed ingest",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	if err := s.files.RemoveDocument(doc.KnowledgeBaseID, doc.ID); err != nil {
		s.logger.Error("failed to remove raw file of failed ingest",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
}

// embedBatched embeds texts in provider-sized batches, preserving order
func (s *IngestService) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := s.config.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
