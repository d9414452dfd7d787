package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/config"
	"github.com/upb/knowledge-engine/internal/redact"
	"github.com/upb/knowledge-engine/internal/vectorindex"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"github.com/upb/knowledge-engine/services/providers"
)

// RetrieveConfig holds retrieval defaults
type RetrieveConfig struct {
	TopK                int
	SimilarityThreshold float64
	MergePolicy         string
}

// RetrieveOptions overrides retrieval defaults per request. Zero TopK and nil
// Threshold fall back to the configured defaults.
type RetrieveOptions struct {
	TopK         int
	Threshold    *float64
	UseWebSearch bool
}

// RetrievalService answers similarity queries against a knowledge base,
// optionally augmented with live web search results.
type RetrievalService struct {
	kbRepo    repositories.KnowledgeBaseRepository
	docRepo   repositories.DocumentRepository
	chunkRepo repositories.ChunkRepository
	embedder  providers.EmbeddingProvider
	search    providers.SearchProvider // nil when web search is disabled
	indexes   *vectorindex.Manager
	config    RetrieveConfig
	logger    *zap.Logger
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(
	repos *repositories.Repositories,
	embedder providers.EmbeddingProvider,
	search providers.SearchProvider,
	indexes *vectorindex.Manager,
	config RetrieveConfig,
	logger *zap.Logger,
) *RetrievalService {
	return &RetrievalService{
		kbRepo:    repos.KnowledgeBases,
		docRepo:   repos.Documents,
		chunkRepo: repos.Chunks,
		embedder:  embedder,
		search:    search,
		indexes:   indexes,
		config:    config,
		logger:    logger,
	}
}

// Retrieve returns the sources grounding an answer to query: the top local
// chunks above the similarity threshold, plus web results when requested.
// Web search is best-effort; a failing search provider degrades to
// local-only results rather than failing the request.
func (s *RetrievalService) Retrieve(ctx context.Context, kbID uuid.UUID, query string, opts RetrieveOptions) ([]models.Source, error) {
	local, err := s.SearchKnowledgeBase(ctx, kbID, query, opts.TopK, opts.Threshold)
	if err != nil {
		return nil, err
	}

	var web []models.Source
	if opts.UseWebSearch && s.search != nil {
		// PII never leaves the engine through a search provider
		webQuery, piiTypes := redact.Mask(query)
		if len(piiTypes) > 0 {
			s.logger.Info("masked PII in web search query",
				zap.String("kb_id", kbID.String()),
				zap.Int("pii_types", len(piiTypes)))
		}

		results, err := s.search.Search(ctx, webQuery)
		if err != nil {
			s.logger.Warn("web search failed, continuing with local results only",
				zap.String("kb_id", kbID.String()),
				zap.String("provider", s.search.Name()),
				zap.Error(err))
		} else {
			web = make([]models.Source, 0, len(results))
			for _, r := range results {
				web = append(web, models.NewWebSource(r.Title, r.URL, r.Snippet, r.Provider))
			}
		}
	}

	return s.merge(local, web), nil
}

// SearchKnowledgeBase returns the top-k chunks of a knowledge base whose
// similarity to the query meets the threshold, best first.
func (s *RetrievalService) SearchKnowledgeBase(ctx context.Context, kbID uuid.UUID, query string, topK int, threshold *float64) ([]models.Source, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.config.TopK
	}
	minScore := s.config.SimilarityThreshold
	if threshold != nil {
		minScore = *threshold
	}

	if _, err := s.kbRepo.GetByID(ctx, kbID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrKnowledgeBaseNotFound
		}
		return nil, NewDomainError(ErrorTypeInternal, "failed to load knowledge base", err)
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, NewDomainError(ErrorTypeExternal, "failed to embed query", err)
	}
	if len(vectors) != 1 {
		return nil, NewDomainError(ErrorTypeExternal,
			fmt.Sprintf("embedding provider returned %d vectors for one query", len(vectors)), nil)
	}

	candidates, err := s.searchConsistent(ctx, kbID, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	// Rank first, then filter: the threshold trims the tail of the top-k,
	// it does not pull in lower-ranked chunks to refill.
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}

	return s.toSources(ctx, kbID, filtered)
}

// searchConsistent runs the index search with a staleness check against the
// durable store. On drift it rebuilds the index from the chunk table and
// retries once; a second mismatch is a consistency failure.
func (s *RetrievalService) searchConsistent(ctx context.Context, kbID uuid.UUID, queryVector []float32, topK int) ([]vectorindex.Candidate, error) {
	for attempt := 0; ; attempt++ {
		snapshot := s.indexes.Get(kbID).Snapshot()

		stored, err := s.chunkRepo.CountIndexedByKnowledgeBase(ctx, kbID)
		if err != nil {
			return nil, NewDomainError(ErrorTypeInternal, "failed to count indexed chunks", err)
		}

		if snapshot.Size() == stored {
			candidates, err := snapshot.Search(queryVector, topK)
			if err != nil {
				return nil, NewDomainError(ErrorTypeInternal, "index search failed", err)
			}
			return candidates, nil
		}

		if attempt >= 1 {
			return nil, NewDomainError(ErrorTypeConsistency,
				fmt.Sprintf("index holds %d vectors but store has %d indexed chunks", snapshot.Size(), stored), nil)
		}

		s.logger.Warn("index diverged from chunk store, rebuilding",
			zap.String("kb_id", kbID.String()),
			zap.Int("index_size", snapshot.Size()),
			zap.Int("store_size", stored))

		if err := s.rebuildIndex(ctx, kbID); err != nil {
			return nil, err
		}
	}
}

// rebuildIndex reloads a knowledge base's vectors from the chunk table
func (s *RetrievalService) rebuildIndex(ctx context.Context, kbID uuid.UUID) error {
	unlock := s.indexes.LockWrites(kbID)
	defer unlock()

	chunks, err := s.chunkRepo.ListIndexedByKnowledgeBase(ctx, kbID)
	if err != nil {
		return NewDomainError(ErrorTypeInternal, "failed to load chunks for rebuild", err)
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorindex.Entry{ChunkID: chunk.ID, Vector: chunk.Embedding}
	}
	if err := s.indexes.Rebuild(kbID, entries); err != nil {
		return NewDomainError(ErrorTypeInternal, "failed to rebuild index", err)
	}
	return nil
}

// toSources resolves ranked candidates into attributed sources, preserving order
func (s *RetrievalService) toSources(ctx context.Context, kbID uuid.UUID, candidates []vectorindex.Candidate) ([]models.Source, error) {
	if len(candidates) == 0 {
		return []models.Source{}, nil
	}

	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	chunks, err := s.chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to load chunks", err)
	}
	chunksByID := make(map[uuid.UUID]*models.Chunk, len(chunks))
	for _, chunk := range chunks {
		chunksByID[chunk.ID] = chunk
	}

	docCache := make(map[uuid.UUID]*models.Document)
	sources := make([]models.Source, 0, len(candidates))
	for _, c := range candidates {
		chunk, ok := chunksByID[c.ChunkID]
		if !ok {
			return nil, NewDomainError(ErrorTypeConsistency,
				fmt.Sprintf("chunk %s present in index but missing from store", c.ChunkID), nil)
		}

		doc, ok := docCache[chunk.DocumentID]
		if !ok {
			doc, err = s.docRepo.GetByID(ctx, chunk.DocumentID)
			if err != nil {
				return nil, NewDomainError(ErrorTypeInternal, "failed to load document for source", err)
			}
			docCache[chunk.DocumentID] = doc
		}

		sources = append(sources, models.NewKnowledgeBaseSource(doc.ID, doc.Filename, c.Score, chunk.Text))
	}
	return sources, nil
}

// merge combines local and web sources according to the configured policy
func (s *RetrievalService) merge(local, web []models.Source) []models.Source {
	if len(web) == 0 {
		return local
	}

	merged := make([]models.Source, 0, len(local)+len(web))
	switch s.config.MergePolicy {
	case config.MergePolicyInterleave:
		for i := 0; i < len(local) || i < len(web); i++ {
			if i < len(local) {
				merged = append(merged, local[i])
			}
			if i < len(web) {
				merged = append(merged, web[i])
			}
		}
	default: // local_first
		merged = append(merged, local...)
		merged = append(merged, web...)
	}
	return merged
}
