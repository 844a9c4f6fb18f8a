package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/routeworks/llm-router/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonRepository_InsertSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ComparisonRepository{db: db}

	session := &models.ComparisonSession{
		ID:         "22222222-2222-2222-2222-222222222222",
		Prompt:     "Compare these",
		TaskType:   models.TaskQA,
		Complexity: 3.5,
		Models:     []models.ModelName{models.ModelGPT4oMini, models.ModelClaudeHaiku},
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO comparison_sessions`).
		WithArgs(session.ID, session.Prompt, session.TaskType, session.Complexity,
			sqlmock.AnyArg(), session.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertSession(context.Background(), session)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComparisonRepository_InsertResult(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ComparisonRepository{db: db}

	result := &models.ComparisonResult{
		ID:           "33333333-3333-3333-3333-333333333333",
		SessionID:    "22222222-2222-2222-2222-222222222222",
		Model:        models.ModelGPT4oMini,
		ResponseText: "an answer",
		LatencyMs:    800,
		TokensUsed:   30,
		CostCents:    0.00045,
	}

	mock.ExpectExec(`INSERT INTO comparison_results`).
		WithArgs(result.ID, result.SessionID, result.Model, result.ResponseText,
			result.LatencyMs, result.TokensUsed, result.CostCents, result.Error).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertResult(context.Background(), result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComparisonRepository_SetWinner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ComparisonRepository{db: db}

	mock.ExpectExec(`UPDATE comparison_sessions SET winner_model`).
		WithArgs(models.ModelClaudeHaiku, "22222222-2222-2222-2222-222222222222").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetWinner(context.Background(), "22222222-2222-2222-2222-222222222222", models.ModelClaudeHaiku)
	require.NoError(t, err)
}

func TestComparisonRepository_SetWinner_UnknownSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ComparisonRepository{db: db}

	mock.ExpectExec(`UPDATE comparison_sessions SET winner_model`).
		WithArgs(models.ModelClaudeHaiku, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetWinner(context.Background(), "missing", models.ModelClaudeHaiku)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestComparisonRepository_SessionExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ComparisonRepository{db: db}

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("known").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.SessionExists(context.Background(), "known")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SessionExists(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, exists)
}
