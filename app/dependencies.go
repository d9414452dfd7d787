// Package app wires the application dependencies together.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/config"
	"github.com/upb/knowledge-engine/internal/filestore"
	"github.com/upb/knowledge-engine/internal/parser"
	"github.com/upb/knowledge-engine/internal/vectorindex"
	"github.com/upb/knowledge-engine/repositories"
	"github.com/upb/knowledge-engine/repositories/postgres"
	"github.com/upb/knowledge-engine/services"
	"github.com/upb/knowledge-engine/services/providers/registry"
)

// Dependencies holds all application dependencies. This is the central wiring
// point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Storage
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager
	Files       *filestore.Store

	// Indexing
	Indexes *vectorindex.Manager

	// Providers
	Providers *registry.Set

	// Parsing
	Parser parser.Parser

	// Services
	KnowledgeBases *services.KnowledgeBaseService
	Ingest         *services.IngestService
	Retrieval      *services.RetrievalService
	Synthesis      *services.SynthesisService
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	files, err := filestore.New(cfg.Storage.UploadDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	deps.Files = files

	deps.Indexes = vectorindex.NewManager(cfg.Providers.Embedding.Dimension, logger)
	deps.Providers = registry.New(cfg, logger)
	deps.Parser = parser.NewPlainText()

	deps.initServices(cfg)

	if err := deps.warmIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to warm vector indexes: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, schema and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initServices wires up the domain services
func (d *Dependencies) initServices(cfg *config.Config) {
	d.KnowledgeBases = services.NewKnowledgeBaseService(
		d.Repos, d.TxManager, d.Providers.Embedding, d.Indexes, d.Files, d.Logger)

	d.Ingest = services.NewIngestService(
		d.Repos, d.TxManager, d.Providers.Embedding, d.Indexes, d.Files,
		services.IngestConfig{
			ChunkSize:          cfg.Ingestion.ChunkSize,
			ChunkOverlap:       cfg.Ingestion.ChunkOverlap,
			EmbeddingBatchSize: cfg.Ingestion.EmbeddingBatchSize,
		},
		d.Logger)

	d.Retrieval = services.NewRetrievalService(
		d.Repos, d.Providers.Embedding, d.Providers.Search, d.Indexes,
		services.RetrieveConfig{
			TopK:                cfg.Retrieval.TopK,
			SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
			MergePolicy:         cfg.Retrieval.MergePolicy,
		},
		d.Logger)

	d.Synthesis = services.NewSynthesisService(d.Providers.Generation, d.Logger)
}

// warmIndexes rebuilds every knowledge base's vector index from the chunk
// table so searches are served from memory immediately after startup.
func (d *Dependencies) warmIndexes(ctx context.Context) error {
	kbs, err := d.Repos.KnowledgeBases.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	for _, kb := range kbs {
		chunks, err := d.Repos.Chunks.ListIndexedByKnowledgeBase(ctx, kb.ID)
		if err != nil {
			return fmt.Errorf("failed to load chunks for %s: %w", kb.ID, err)
		}

		entries := make([]vectorindex.Entry, len(chunks))
		for i, chunk := range chunks {
			entries[i] = vectorindex.Entry{ChunkID: chunk.ID, Vector: chunk.Embedding}
		}
		if err := d.Indexes.Rebuild(kb.ID, entries); err != nil {
			return fmt.Errorf("failed to rebuild index for %s: %w", kb.ID, err)
		}
	}

	d.Logger.Info("vector indexes warmed", zap.Int("knowledge_bases", len(kbs)))
	return nil
}

// Close releases all held resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
