package services

import (
	"context"
	"errors"
	"strings"
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

type ingestFixture struct {
	kbRepo    *MockKnowledgeBaseRepository
	docRepo   *MockDocumentRepository
	chunkRepo *MockChunkRepository
	embedder  *MockEmbeddingProvider
	files     *MockFileStore
	indexes   *vectorindex.Manager
	service   *IngestService
}

func newIngestFixture(t *testing.T, dimension int) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		kbRepo:    new(MockKnowledgeBaseRepository),
		docRepo:   new(MockDocumentRepository),
		chunkRepo: new(MockChunkRepository),
		embedder:  &MockEmbeddingProvider{dimension: dimension},
		files:     new(MockFileStore),
		indexes:   vectorindex.NewManager(dimension, zap.NewNop()),
	}
	f.service = NewIngestService(
		&repositories.Repositories{
			KnowledgeBases: f.kbRepo,
			Documents:      f.docRepo,
			Chunks:         f.chunkRepo,
		},
		&fakeTxManager{},
		f.embedder,
		f.indexes,
		f.files,
		IngestConfig{ChunkSize: 10, ChunkOverlap: 2, EmbeddingBatchSize: 64},
		zap.NewNop(),
	)
	return f
}

func vectorsOfDim(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		v[i%dim] = 1
		out[i] = v
	}
	return out
}

func TestIngestDocument_Success(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID, Name: "kb"}, nil)

	content := strings.Repeat("a", 25) // 3 chunks at size 10, overlap 2
	f.embedder.On("Embed", mock.Anything, mock.MatchedBy(func(texts []string) bool {
		return len(texts) == 3
	})).Return(vectorsOfDim(3, 3), nil)

	f.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Document")).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*models.Chunk")).Return(nil)
	f.files.On("Save", kbID, mock.Anything, "notes.txt", []byte(content)).Return("/tmp/x", nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.Anything, models.DocumentStatusIndexed).Return(nil)

	doc, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", []byte(content), content)
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusIndexed, doc.Status)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.Equal(t, 3, f.indexes.Get(kbID).Size())

	f.kbRepo.AssertExpectations(t)
	f.docRepo.AssertExpectations(t)
	f.chunkRepo.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func TestIngestDocument_EmptyContent(t *testing.T) {
	f := newIngestFixture(t, 3)

	_, err := f.service.IngestDocument(context.Background(), uuid.New(), "empty.txt", nil, "   \n")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestIngestDocument_UnknownKnowledgeBase(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(nil, repositories.ErrNotFound)

	_, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", nil, "hello")
	require.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestIngestDocument_EmbeddingFailureLeavesNoTrace(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)
	f.embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	_, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", nil, "hello world content")
	require.Error(t, err)
	assert.True(t, IsExternalError(err))

	// nothing was persisted or indexed
	f.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.chunkRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.indexes.Get(kbID).Size())
}

func TestIngestDocument_PostPersistFailureRollsBack(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)
	f.embedder.On("Embed", mock.Anything, mock.Anything).Return(vectorsOfDim(1, 3), nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
	f.files.On("Save", kbID, mock.Anything, "notes.txt", mock.Anything).Return("", errors.New("disk full"))

	// rollback path
	f.docRepo.On("UpdateStatus", mock.Anything, mock.Anything, models.DocumentStatusFailed).Return(nil)
	f.chunkRepo.On("DeleteByDocument", mock.Anything, mock.Anything).Return(nil)
	f.files.On("RemoveDocument", kbID, mock.Anything).Return(nil)

	_, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", []byte("hello"), "hello")
	require.Error(t, err)

	f.docRepo.AssertCalled(t, "UpdateStatus", mock.Anything, mock.Anything, models.DocumentStatusFailed)
	f.chunkRepo.AssertCalled(t, "DeleteByDocument", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.indexes.Get(kbID).Size())
}

func TestIngestDocument_CancelledRequestStillRollsBack(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)
	f.embedder.On("Embed", mock.Anything, mock.Anything).Return(vectorsOfDim(1, 3), nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	// the caller cancels while the raw file is being written
	f.files.On("Save", kbID, mock.Anything, "notes.txt", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	// cleanup must arrive on a context the cancellation cannot reach
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	f.docRepo.On("UpdateStatus", live, mock.Anything, models.DocumentStatusFailed).Return(nil)
	f.chunkRepo.On("DeleteByDocument", live, mock.Anything).Return(nil)
	f.files.On("RemoveDocument", kbID, mock.Anything).Return(nil)

	_, err := f.service.IngestDocument(ctx, kbID, "notes.txt", []byte("hello"), "hello")
	require.Error(t, err)

	f.docRepo.AssertExpectations(t)
	f.chunkRepo.AssertExpectations(t)
	f.files.AssertExpectations(t)
	assert.Equal(t, 0, f.indexes.Get(kbID).Size())
}

func TestIngestDocument_TransactionFailure(t *testing.T) {
	f := newIngestFixture(t, 3)
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)
	f.embedder.On("Embed", mock.Anything, mock.Anything).Return(vectorsOfDim(1, 3), nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("unique violation"))

	_, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", nil, "hello")
	require.Error(t, err)
	assert.True(t, IsInternalError(err))
	assert.Equal(t, 0, f.indexes.Get(kbID).Size())
}

func TestIngestDocument_BatchesEmbeddingCalls(t *testing.T) {
	f := newIngestFixture(t, 3)
	f.service.config.EmbeddingBatchSize = 2
	kbID := uuid.New()

	f.kbRepo.On("GetByID", mock.Anything, kbID).Return(&models.KnowledgeBase{ID: kbID}, nil)

	// 25 chars at size 10 / overlap 2 -> 3 chunks -> batches of 2 and 1
	content := strings.Repeat("b", 25)
	f.embedder.On("Embed", mock.Anything, mock.MatchedBy(func(texts []string) bool { return len(texts) == 2 })).
		Return(vectorsOfDim(2, 3), nil).Once()
	f.embedder.On("Embed", mock.Anything, mock.MatchedBy(func(texts []string) bool { return len(texts) == 1 })).
		Return(vectorsOfDim(1, 3), nil).Once()

	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.Anything, models.DocumentStatusIndexed).Return(nil)

	doc, err := f.service.IngestDocument(context.Background(), kbID, "notes.txt", nil, content)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.ChunkCount)
	f.embedder.AssertExpectations(t)
}
