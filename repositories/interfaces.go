package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/knowledge-engine/models"
)

// ErrNotFound is returned by repositories when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction. The transaction
	// rides on the context passed to fn; repositories pick it up transparently.
	// Automatically commits if the function succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// KnowledgeBaseRepository handles knowledge base records
type KnowledgeBaseRepository interface {
	// Create creates a new knowledge base
	Create(ctx context.Context, kb *models.KnowledgeBase) error

	// GetByID retrieves a knowledge base by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error)

	// List retrieves all knowledge bases with their derived document counts
	List(ctx context.Context) ([]*models.KnowledgeBase, error)

	// Delete deletes a knowledge base row; cascading deletion of documents and
	// chunks is driven by the caller inside one transaction
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentRepository handles document records
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)

	// ListByKnowledgeBase retrieves all documents of a knowledge base with
	// their derived chunk counts
	ListByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Document, error)

	// UpdateStatus moves a document through its lifecycle states
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error

	// Delete deletes a document row
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByKnowledgeBase deletes every document row of a knowledge base
	DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error
}

// ChunkRepository handles chunk records including their persisted embeddings
type ChunkRepository interface {
	// CreateBatch inserts a set of chunks
	CreateBatch(ctx context.Context, chunks []*models.Chunk) error

	// GetByIDs retrieves chunks by their IDs
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Chunk, error)

	// IDsByDocument returns the chunk IDs belonging to a document
	IDsByDocument(ctx context.Context, docID uuid.UUID) ([]uuid.UUID, error)

	// ListIndexedByKnowledgeBase retrieves every chunk of a knowledge base whose
	// document is in the indexed state; used for index rebuilds
	ListIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Chunk, error)

	// CountIndexedByKnowledgeBase counts the chunks that should be searchable;
	// compared against the index snapshot size for drift detection
	CountIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error)

	// CountByKnowledgeBase counts all chunks of a knowledge base regardless of state
	CountByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error)

	// DeleteByDocument deletes every chunk of a document
	DeleteByDocument(ctx context.Context, docID uuid.UUID) error

	// DeleteByKnowledgeBase deletes every chunk of a knowledge base
	DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error
}

// Repositories groups all repository instances
type Repositories struct {
	KnowledgeBases KnowledgeBaseRepository
	Documents      DocumentRepository
	Chunks         ChunkRepository
}
