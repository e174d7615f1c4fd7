package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/trackerd/internal/model"
)

func TestReportRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewReportRepository(db.DB)
	ctx := context.Background()
	sessionID := seedSession(t, sessions)

	report, err := repo.Create(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusGenerating, report.Status)
	assert.Nil(t, report.Content)
}

func TestReportRepository_FindLatestBySession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewReportRepository(db.DB)
	ctx := context.Background()
	sessionID := seedSession(t, sessions)

	t.Run("nil when no report exists", func(t *testing.T) {
		report, err := repo.FindLatestBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("most recent row wins", func(t *testing.T) {
		first, err := repo.Create(ctx, sessionID)
		require.NoError(t, err)
		require.NoError(t, repo.MarkFailed(ctx, first.ID))

		second, err := repo.Create(ctx, sessionID)
		require.NoError(t, err)

		latest, err := repo.FindLatestBySession(ctx, sessionID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, second.ID, latest.ID)
	})
}

func TestReportRepository_StatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewReportRepository(db.DB)
	ctx := context.Background()
	sessionID := seedSession(t, sessions)

	report, err := repo.Create(ctx, sessionID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkReady(ctx, report.ID, `{"verdict":"ok"}`))
	latest, err := repo.FindLatestBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusReady, latest.Status)
	require.NotNil(t, latest.Content)
	assert.Equal(t, `{"verdict":"ok"}`, *latest.Content)

	ready, err := repo.HasReady(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, ready)

	t.Run("failed clears content", func(t *testing.T) {
		require.NoError(t, repo.MarkFailed(ctx, report.ID))
		latest, err := repo.FindLatestBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, model.ReportStatusFailed, latest.Status)
		assert.Nil(t, latest.Content)
	})

	t.Run("reset returns to generating", func(t *testing.T) {
		require.NoError(t, repo.ResetGenerating(ctx, report.ID))
		latest, err := repo.FindLatestBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, model.ReportStatusGenerating, latest.Status)
	})
}

func TestReportRepository_MarkAllGeneratingFailed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewReportRepository(db.DB)
	ctx := context.Background()

	first := seedSession(t, sessions)
	second := seedSession(t, sessions)

	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	done, err := repo.Create(ctx, second)
	require.NoError(t, err)
	require.NoError(t, repo.MarkReady(ctx, done.ID, `{"verdict":"ok"}`))

	count, err := repo.MarkAllGeneratingFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	latest, err := repo.FindLatestBySession(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, latest.Status)

	untouched, err := repo.FindLatestBySession(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusReady, untouched.Status)
}
