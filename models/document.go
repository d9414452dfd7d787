package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the lifecycle state of an ingested document
type DocumentStatus string

const (
	// DocumentStatusPending means the document row exists but its chunks are not searchable yet
	DocumentStatusPending DocumentStatus = "pending"

	// DocumentStatusIndexed means every chunk of the document is in the vector index
	DocumentStatusIndexed DocumentStatus = "indexed"

	// DocumentStatusFailed means ingestion aborted after the row was written; the
	// document is never searchable in this state
	DocumentStatusFailed DocumentStatus = "failed"
)

// DocumentPreviewLimit bounds the stored content preview, in runes
const DocumentPreviewLimit = 200

// Document represents one uploaded file inside a knowledge base
type Document struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	KnowledgeBaseID uuid.UUID      `json:"knowledge_base_id" db:"kb_id"`
	Filename        string         `json:"filename" db:"filename"`
	FileSizeBytes   int64          `json:"file_size_bytes" db:"file_size_bytes"`
	ContentPreview  string         `json:"content_preview" db:"content_preview"`
	Status          DocumentStatus `json:"status" db:"status"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`

	// ChunkCount is derived from the chunks table, never stored
	ChunkCount int `json:"chunk_count" db:"-"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new Document in the pending state
func NewDocument(kbID uuid.UUID, filename string, fileSizeBytes int64, content string) *Document {
	return &Document{
		ID:              uuid.New(),
		KnowledgeBaseID: kbID,
		Filename:        filename,
		FileSizeBytes:   fileSizeBytes,
		ContentPreview:  Preview(content, DocumentPreviewLimit),
		Status:          DocumentStatusPending,
		CreatedAt:       time.Now(),
	}
}

// Preview returns at most limit runes of text, appending "..." when truncated.
// Truncation is rune-based so multi-byte characters are never split.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
