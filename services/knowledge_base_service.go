package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/internal/vectorindex"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"github.com/upb/knowledge-engine/services/providers"
)

// KnowledgeBaseService manages the knowledge base lifecycle: creation,
// listing, stats and cascading deletion across store, index and file
// retention.
type KnowledgeBaseService struct {
	kbRepo    repositories.KnowledgeBaseRepository
	docRepo   repositories.DocumentRepository
	chunkRepo repositories.ChunkRepository
	txManager repositories.TransactionManager
	embedder  providers.EmbeddingProvider
	indexes   *vectorindex.Manager
	files     FileStore
	logger    *zap.Logger
}

// NewKnowledgeBaseService creates a new knowledge base service
func NewKnowledgeBaseService(
	repos *repositories.Repositories,
	txManager repositories.TransactionManager,
	embedder providers.EmbeddingProvider,
	indexes *vectorindex.Manager,
	files FileStore,
	logger *zap.Logger,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		kbRepo:    repos.KnowledgeBases,
		docRepo:   repos.Documents,
		chunkRepo: repos.Chunks,
		txManager: txManager,
		embedder:  embedder,
		indexes:   indexes,
		files:     files,
		logger:    logger,
	}
}

// CreateKnowledgeBase registers a new, empty knowledge base
func (s *KnowledgeBaseService) CreateKnowledgeBase(ctx context.Context, name, description string) (*models.KnowledgeBase, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	kb := models.NewKnowledgeBase(name, description)
	if err := s.kbRepo.Create(ctx, kb); err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to create knowledge base", err)
	}

	s.logger.Info("knowledge base created",
		zap.String("kb_id", kb.ID.String()),
		zap.String("name", kb.Name))
	return kb, nil
}

// GetKnowledgeBase returns one knowledge base by ID
func (s *KnowledgeBaseService) GetKnowledgeBase(ctx context.Context, kbID uuid.UUID) (*models.KnowledgeBase, error) {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrKnowledgeBaseNotFound
		}
		return nil, NewDomainError(ErrorTypeInternal, "failed to load knowledge base", err)
	}
	return kb, nil
}

// ListKnowledgeBases returns all knowledge bases
func (s *KnowledgeBaseService) ListKnowledgeBases(ctx context.Context) ([]*models.KnowledgeBase, error) {
	kbs, err := s.kbRepo.List(ctx)
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to list knowledge bases", err)
	}
	return kbs, nil
}

// DeleteKnowledgeBase removes a knowledge base and everything it owns:
// documents, chunks, index vectors and retained files. The durable rows go in
// one transaction; index and files are cleaned up after commit.
func (s *KnowledgeBaseService) DeleteKnowledgeBase(ctx context.Context, kbID uuid.UUID) error {
	if _, err := s.GetKnowledgeBase(ctx, kbID); err != nil {
		return err
	}

	unlock := s.indexes.LockWrites(kbID)
	defer unlock()

	err := s.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chunkRepo.DeleteByKnowledgeBase(txCtx, kbID); err != nil {
			return err
		}
		if err := s.docRepo.DeleteByKnowledgeBase(txCtx, kbID); err != nil {
			return err
		}
		return s.kbRepo.Delete(txCtx, kbID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrKnowledgeBaseNotFound
		}
		return NewDomainError(ErrorTypeInternal, "failed to delete knowledge base", err)
	}

	s.indexes.Drop(kbID)
	if err := s.files.RemoveKnowledgeBase(kbID); err != nil {
		s.logger.Error("failed to remove retained files",
			zap.String("kb_id", kbID.String()), zap.Error(err))
	}

	s.logger.Info("knowledge base deleted", zap.String("kb_id", kbID.String()))
	return nil
}

// GetStats returns the aggregate counters of a knowledge base
func (s *KnowledgeBaseService) GetStats(ctx context.Context, kbID uuid.UUID) (*models.KnowledgeBaseStats, error) {
	kb, err := s.GetKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, err
	}

	chunkCount, err := s.chunkRepo.CountByKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to count chunks", err)
	}

	return &models.KnowledgeBaseStats{
		KnowledgeBaseID: kb.ID,
		Name:            kb.Name,
		DocumentCount:   kb.DocCount,
		ChunkCount:      chunkCount,
		VectorCount:     s.indexes.Get(kbID).Size(),
		EmbeddingModel:  s.embedder.Name(),
		Dimension:       s.embedder.Dimension(),
	}, nil
}

// ListDocuments returns the documents of a knowledge base
func (s *KnowledgeBaseService) ListDocuments(ctx context.Context, kbID uuid.UUID) ([]*models.Document, error) {
	if _, err := s.GetKnowledgeBase(ctx, kbID); err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to list documents", err)
	}
	return docs, nil
}

// DeleteDocument removes one document, its chunks, its index vectors and its
// retained file.
func (s *KnowledgeBaseService) DeleteDocument(ctx context.Context, kbID, docID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return NewDomainError(ErrorTypeInternal, "failed to load document", err)
	}
	if doc.KnowledgeBaseID != kbID {
		return ErrDocumentNotFound
	}

	chunkIDs, err := s.chunkRepo.IDsByDocument(ctx, docID)
	if err != nil {
		return NewDomainError(ErrorTypeInternal, "failed to list document chunks", err)
	}

	unlock := s.indexes.LockWrites(kbID)
	defer unlock()

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chunkRepo.DeleteByDocument(txCtx, docID); err != nil {
			return err
		}
		return s.docRepo.Delete(txCtx, docID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return NewDomainError(ErrorTypeInternal, "failed to delete document", err)
	}

	s.indexes.Get(kbID).RemoveBatch(chunkIDs)
	if err := s.files.RemoveDocument(kbID, docID); err != nil {
		s.logger.Error("failed to remove retained file",
			zap.String("document_id", docID.String()), zap.Error(err))
	}

	s.logger.Info("document deleted",
		zap.String("kb_id", kbID.String()),
		zap.String("document_id", docID.String()),
		zap.Int("chunks", len(chunkIDs)))
	return nil
}
