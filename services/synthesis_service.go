package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/services/providers"
)

// defaultInstructions is the system prompt for grounded answering
const defaultInstructions = `You are a knowledgeable assistant. Answer the user's question based on the provided context. ` +
	`When the context contains relevant information, ground your answer in it and stay faithful to it. ` +
	`When the context does not cover the question, say so and answer from general knowledge. ` +
	`Be concise and factual.`

// SynthesisService produces a grounded answer from retrieved sources
type SynthesisService struct {
	generator providers.GenerationProvider
	logger    *zap.Logger
}

// NewSynthesisService creates a new synthesis service
func NewSynthesisService(generator providers.GenerationProvider, logger *zap.Logger) *SynthesisService {
	return &SynthesisService{
		generator: generator,
		logger:    logger,
	}
}

// Synthesize asks the generation provider for an answer grounded in the given
// sources. An empty source list is valid: the provider is told no context was
// found. A generation failure yields a failed result, not an error, so the
// caller can still return the retrieved sources.
func (s *SynthesisService) Synthesize(ctx context.Context, query string, sources []models.Source) *models.ChatResult {
	if sources == nil {
		sources = []models.Source{}
	}

	contextBlock := buildContextBlock(sources)

	answer, err := s.generator.Generate(ctx, defaultInstructions, contextBlock, query)
	if err != nil {
		s.logger.Error("answer generation failed",
			zap.String("model", s.generator.Model()),
			zap.Int("sources", len(sources)),
			zap.Error(err))
		return &models.ChatResult{
			Success: false,
			Sources: sources,
			Error:   "answer generation failed",
		}
	}

	return &models.ChatResult{
		Success: true,
		Answer:  answer,
		Sources: sources,
	}
}

// buildContextBlock renders sources into the numbered, provenance-tagged
// context passed to the generation provider.
func buildContextBlock(sources []models.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	for i, src := range sources {
		switch src.Type {
		case models.SourceTypeKnowledgeBase:
			fmt.Fprintf(&b, "[%d] (document: %s, similarity: %.2f)\n%s\n\n",
				i+1, src.Filename, src.SimilarityScore, src.Content)
		case models.SourceTypeWeb:
			fmt.Fprintf(&b, "[%d] (web: %s, %s)\n%s\n\n",
				i+1, src.Title, src.URL, src.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
