package models

import "github.com/google/uuid"

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Chunks are immutable once created and are deleted
// only alongside their document.
type Chunk struct {
	ID              uuid.UUID `json:"id" db:"id"`
	DocumentID      uuid.UUID `json:"document_id" db:"doc_id"`
	KnowledgeBaseID uuid.UUID `json:"knowledge_base_id" db:"kb_id"`
	Text            string    `json:"text" db:"content"`
	Embedding       []float32 `json:"-" db:"embedding"`
	Position        int       `json:"position" db:"position"`
}

// TableName returns the table name for the Chunk model
func (Chunk) TableName() string {
	return "chunks"
}
