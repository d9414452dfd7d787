package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
	"github.com/upb/knowledge-engine/services/providers"
)

// MockKnowledgeBaseRepository is a mock implementation of repositories.KnowledgeBaseRepository
type MockKnowledgeBaseRepository struct {
	mock.Mock
}

func (m *MockKnowledgeBaseRepository) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	args := m.Called(ctx, kb)
	return args.Error(0)
}

func (m *MockKnowledgeBaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeBaseRepository) List(ctx context.Context) ([]*models.KnowledgeBase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeBaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of repositories.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Document, error) {
	args := m.Called(ctx, kbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error {
	args := m.Called(ctx, kbID)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of repositories.ChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) CreateBatch(ctx context.Context, chunks []*models.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Chunk, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Chunk), args.Error(1)
}

func (m *MockChunkRepository) IDsByDocument(ctx context.Context, docID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockChunkRepository) ListIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.Chunk, error) {
	args := m.Called(ctx, kbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Chunk), args.Error(1)
}

func (m *MockChunkRepository) CountIndexedByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error) {
	args := m.Called(ctx, kbID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkRepository) CountByKnowledgeBase(ctx context.Context, kbID uuid.UUID) (int, error) {
	args := m.Called(ctx, kbID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteByKnowledgeBase(ctx context.Context, kbID uuid.UUID) error {
	args := m.Called(ctx, kbID)
	return args.Error(0)
}

// fakeTxManager executes the transactional function directly, without a database
type fakeTxManager struct {
	failWith error
}

func (f *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	panic("not used in tests")
}

func (f *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.failWith != nil {
		return f.failWith
	}
	return fn(ctx)
}

// MockEmbeddingProvider is a mock implementation of providers.EmbeddingProvider
type MockEmbeddingProvider struct {
	mock.Mock
	dimension int
}

func (m *MockEmbeddingProvider) Name() string {
	return "mock-embedder"
}

func (m *MockEmbeddingProvider) Dimension() int {
	return m.dimension
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockSearchProvider is a mock implementation of providers.SearchProvider
type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) Name() string {
	return "mock-search"
}

func (m *MockSearchProvider) Search(ctx context.Context, query string) ([]providers.WebResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.WebResult), args.Error(1)
}

// MockGenerationProvider is a mock implementation of providers.GenerationProvider
type MockGenerationProvider struct {
	mock.Mock
}

func (m *MockGenerationProvider) Name() string {
	return "mock-generator"
}

func (m *MockGenerationProvider) Model() string {
	return "mock-model"
}

func (m *MockGenerationProvider) Generate(ctx context.Context, instructions, contextBlock, query string) (string, error) {
	args := m.Called(ctx, instructions, contextBlock, query)
	return args.String(0), args.Error(1)
}

// MockFileStore is a mock implementation of FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(kbID, docID uuid.UUID, filename string, data []byte) (string, error) {
	args := m.Called(kbID, docID, filename, data)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) RemoveDocument(kbID, docID uuid.UUID) error {
	args := m.Called(kbID, docID)
	return args.Error(0)
}

func (m *MockFileStore) RemoveKnowledgeBase(kbID uuid.UUID) error {
	args := m.Called(kbID)
	return args.Error(0)
}
