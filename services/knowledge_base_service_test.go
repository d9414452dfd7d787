package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/internal/vectorindex"
	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
)

type kbFixture struct {
	kbRepo    *MockKnowledgeBaseRepository
	docRepo   *MockDocumentRepository
	chunkRepo *MockChunkRepository
	embedder  *MockEmbeddingProvider
	files     *MockFileStore
	indexes   *vectorindex.Manager
	service   *KnowledgeBaseService
}

func newKBFixture(t *testing.T) *kbFixture {
	t.Helper()
	f := &kbFixture{
		kbRepo:    new(MockKnowledgeBaseRepository),
		docRepo:   new(MockDocumentRepository),
		chunkRepo: new(MockChunkRepository),
		embedder:  &MockEmbeddingProvider{dimension: 3},
		files:     new(MockFileStore),
		indexes:   vectorindex.NewManager(3, zap.NewNop()),
	}
	f.service = NewKnowledgeBaseService(
		&repositories.Repositories{
			KnowledgeBases: f.kbRepo,
			Documents:      f.docRepo,
			Chunks:         f.chunkRepo,
		},
		&fakeTxManager{},
		f.embedder,
		f.indexes,
		f.files,
		zap.NewNop(),
	)
	return f
}

func TestCreateKnowledgeBase(t *testing.T) {
	f := newKBFixture(t)

	f.kbRepo.On("Create", mock.Anything, mock.MatchedBy(func(kb *models.KnowledgeBase) bool {
		return kb.Name == "docs" && kb.Description == "project docs" && kb.ID != uuid.Nil
	})).Return(nil)

	kb, err := f.service.CreateKnowledgeBase(context.Background(), "docs", "project docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", kb.Name)
	f.kbRepo.AssertExpectations(t)
}

func TestCreateKnowledgeBase_EmptyName(t *testing.T) {
	f := newKBFixture(t)

	_, err := f.service.CreateKnowledgeBase(context.Background(), "  ", "desc")
	require.ErrorIs(t, err, ErrEmptyName)
	f.kbRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeleteKnowledgeBase_Cascades(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()

	// seed the index so we can observe it being dropped
	require.NoError(t, f.indexes.Get(kbID).Insert(uuid.New(), []float32{1, 0, 0}))

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)
	f.chunkRepo.On("DeleteByKnowledgeBase", mock.Anything, kbID).Return(nil)
	f.docRepo.On("DeleteByKnowledgeBase", mock.Anything, kbID).Return(nil)
	f.kbRepo.On("Delete", mock.Anything, kbID).Return(nil)
	f.files.On("RemoveKnowledgeBase", kbID).Return(nil)

	require.NoError(t, f.service.DeleteKnowledgeBase(context.Background(), kbID))

	assert.Equal(t, 0, f.indexes.Get(kbID).Size())
	f.chunkRepo.AssertExpectations(t)
	f.docRepo.AssertExpectations(t)
	f.kbRepo.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func TestDeleteKnowledgeBase_NotFound(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(nil, repositories.ErrNotFound)

	err := f.service.DeleteKnowledgeBase(context.Background(), kbID)
	require.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestGetStats(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()

	require.NoError(t, f.indexes.Get(kbID).Insert(uuid.New(), []float32{1, 0, 0}))

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{
		ID: kbID, Name: "docs", DocCount: 2,
	}, nil)
	f.chunkRepo.On("CountByKnowledgeBase", mock.Anything, kbID).Return(7, nil)

	stats, err := f.service.GetStats(context.Background(), kbID)
	require.NoError(t, err)
	assert.Equal(t, kbID, stats.KnowledgeBaseID)
	assert.Equal(t, "docs", stats.Name)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 7, stats.ChunkCount)
	assert.Equal(t, 1, stats.VectorCount)
	assert.Equal(t, "mock-embedder", stats.EmbeddingModel)
	assert.Equal(t, 3, stats.Dimension)
}

func TestListDocuments_UnknownKnowledgeBase(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(nil, repositories.ErrNotFound)

	_, err := f.service.ListDocuments(context.Background(), kbID)
	require.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestDeleteDocument_RemovesChunksAndVectors(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()
	docID := uuid.New()
	chunkIDs := []uuid.UUID{uuid.New(), uuid.New()}

	index := f.indexes.Get(kbID)
	for _, id := range chunkIDs {
		require.NoError(t, index.Insert(id, []float32{1, 0, 0}))
	}

	f.docRepo.On("GetByID", mock.Anything, docID).Return(&models.Document{
		ID: docID, KnowledgeBaseID: kbID,
	}, nil)
	f.chunkRepo.On("IDsByDocument", mock.Anything, docID).Return(chunkIDs, nil)
	f.chunkRepo.On("DeleteByDocument", mock.Anything, docID).Return(nil)
	f.docRepo.On("Delete", mock.Anything, docID).Return(nil)
	f.files.On("RemoveDocument", kbID, docID).Return(nil)

	require.NoError(t, f.service.DeleteDocument(context.Background(), kbID, docID))
	assert.Equal(t, 0, index.Size())
}

func TestDeleteDocument_WrongKnowledgeBase(t *testing.T) {
	f := newKBFixture(t)
	docID := uuid.New()

	f.docRepo.On("GetByID", mock.Anything, docID).Return(&models.Document{
		ID: docID, KnowledgeBaseID: uuid.New(),
	}, nil)

	err := f.service.DeleteDocument(context.Background(), uuid.New(), docID)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteDocument_TransactionFailure(t *testing.T) {
	f := newKBFixture(t)
	kbID := uuid.New()
	docID := uuid.New()
	chunkID := uuid.New()

	require.NoError(t, f.indexes.Get(kbID).Insert(chunkID, []float32{1, 0, 0}))

	f.docRepo.On("GetByID", mock.Anything, docID).Return(&models.Document{
		ID: docID, KnowledgeBaseID: kbID,
	}, nil)
	f.chunkRepo.On("IDsByDocument", mock.Anything, docID).Return([]uuid.UUID{chunkID}, nil)
	f.chunkRepo.On("DeleteByDocument", mock.Anything, docID).Return(errors.New("deadlock"))

	err := f.service.DeleteDocument(context.Background(), kbID, docID)
	require.Error(t, err)

	// vectors stay until the durable delete commits
	assert.Equal(t, 1, f.indexes.Get(kbID).Size())
}
