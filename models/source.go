package models

import "github.com/google/uuid"

// SourceType discriminates the provenance of a piece of retrieved evidence
type SourceType string

const (
	// SourceTypeKnowledgeBase marks evidence retrieved from the local vector index
	SourceTypeKnowledgeBase SourceType = "knowledge_base"

	// SourceTypeWeb marks evidence retrieved from a live web search provider
	SourceTypeWeb SourceType = "web"
)

// SourcePreviewLimit bounds the content preview attached to a source, in runes
const SourcePreviewLimit = 100

// Source is a provenance-tagged piece of evidence backing an answer.
// Type selects which variant fields are populated: knowledge-base sources carry
// DocumentID, Filename and SimilarityScore; web sources carry Title, URL and
// Provider. Sources are result-only and never persisted.
type Source struct {
	Type           SourceType `json:"type"`
	ContentPreview string     `json:"content_preview"`

	// Content is the full text used when building the generation prompt.
	// Only the preview is exposed on the wire.
	Content string `json:"-"`

	// Knowledge-base variant
	DocumentID      uuid.UUID `json:"document_id,omitempty"`
	Filename        string    `json:"filename,omitempty"`
	SimilarityScore float64   `json:"similarity_score,omitempty"`

	// Web variant
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// NewKnowledgeBaseSource creates a knowledge-base source from a retrieved chunk
func NewKnowledgeBaseSource(docID uuid.UUID, filename string, score float64, content string) Source {
	return Source{
		Type:            SourceTypeKnowledgeBase,
		DocumentID:      docID,
		Filename:        filename,
		SimilarityScore: score,
		Content:         content,
		ContentPreview:  Preview(content, SourcePreviewLimit),
	}
}

// NewWebSource creates a web source from a search provider hit
func NewWebSource(title, url, snippet, provider string) Source {
	return Source{
		Type:           SourceTypeWeb,
		Title:          title,
		URL:            url,
		Provider:       provider,
		Content:        snippet,
		ContentPreview: Preview(snippet, SourcePreviewLimit),
	}
}
