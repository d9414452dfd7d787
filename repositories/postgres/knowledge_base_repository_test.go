package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/models"
	"github.com/upb/knowledge-engine/repositories"
)

func newMockRepo(t *testing.T) (repositories.KnowledgeBaseRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	return NewKnowledgeBaseRepository(db, zap.NewNop()), mock
}

func TestKnowledgeBaseRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	kb := &models.KnowledgeBase{
		ID:          uuid.New(),
		Name:        "docs",
		Description: "product docs",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO knowledge_bases")).
		WithArgs(kb.ID, kb.Name, kb.Description, kb.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), kb)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeBaseRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at", "doc_count"}).
		AddRow(id, "docs", "product docs", created, 3)

	mock.ExpectQuery(regexp.QuoteMeta("FROM knowledge_bases kb")).
		WithArgs(id).
		WillReturnRows(rows)

	kb, err := repo.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, kb.ID)
	assert.Equal(t, "docs", kb.Name)
	assert.Equal(t, 3, kb.DocCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeBaseRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM knowledge_bases kb")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "doc_count"}))

	_, err := repo.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeBaseRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)

	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at", "doc_count"}).
		AddRow(uuid.New(), "recent", "", newer, 1).
		AddRow(uuid.New(), "older", "", older, 0)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY kb.created_at DESC")).
		WillReturnRows(rows)

	kbs, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, kbs, 2)
	assert.Equal(t, "recent", kbs[0].Name)
	assert.Equal(t, "older", kbs[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeBaseRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM knowledge_bases WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), id)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeBaseRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM knowledge_bases WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
