package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/trackerd/internal/model"
)

func TestSessionEventRepository_Append(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewSessionEventRepository(db.DB)
	ctx := context.Background()

	session, err := sessions.Create(ctx, model.CreateSessionParams{Name: "x", Intent: "y"})
	require.NoError(t, err)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventPaused, base))
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventResumed, base.Add(time.Minute)))
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventPaused, base.Add(2*time.Minute)))

	events, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.SessionEventPaused, events[0].EventType)
	assert.Equal(t, model.SessionEventResumed, events[1].EventType)
	assert.Equal(t, model.SessionEventPaused, events[2].EventType)
}

func TestSessionEventRepository_AppendOrderSurvivesEqualTimestamps(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewSessionEventRepository(db.DB)
	ctx := context.Background()

	session, err := sessions.Create(ctx, model.CreateSessionParams{Name: "x", Intent: "y"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventPaused, at))
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventResumed, at))

	events, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.SessionEventPaused, events[0].EventType)
	assert.Equal(t, model.SessionEventResumed, events[1].EventType)
}

func TestSessionEventRepository_CascadeDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db.DB)
	repo := NewSessionEventRepository(db.DB)
	ctx := context.Background()

	session, err := sessions.Create(ctx, model.CreateSessionParams{Name: "x", Intent: "y"})
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, session.ID, model.SessionEventPaused, time.Now().UTC()))

	_, err = sessions.DeleteByStatus(ctx, model.SessionStatusCreated)
	require.NoError(t, err)

	events, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}
