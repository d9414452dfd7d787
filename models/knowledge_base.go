package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeBase represents a named collection of indexed documents
type KnowledgeBase struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// DocCount is derived from the documents table, never stored
	DocCount int `json:"doc_count" db:"-"`
}

// TableName returns the table name for the KnowledgeBase model
func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}

// NewKnowledgeBase creates a new KnowledgeBase instance
func NewKnowledgeBase(name, description string) *KnowledgeBase {
	return &KnowledgeBase{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// KnowledgeBaseStats is a read-only projection over one knowledge base
type KnowledgeBaseStats struct {
	KnowledgeBaseID uuid.UUID `json:"knowledge_base_id"`
	Name            string    `json:"name"`
	DocumentCount   int       `json:"document_count"`
	ChunkCount      int       `json:"chunk_count"`
	VectorCount     int       `json:"vector_count"`
	EmbeddingModel  string    `json:"embedding_model"`
	Dimension       int       `json:"dimension"`
}
