package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
)

type SessionEventRepository interface {
	Append(ctx context.Context, sessionID string, eventType model.SessionEventType, at time.Time) error
	// ListBySession returns all events for a session in append order.
	ListBySession(ctx context.Context, sessionID string) ([]model.SessionEvent, error)
}

type sessionEventRepo struct {
	db database.DBTX
}

func NewSessionEventRepository(db *sqlx.DB) SessionEventRepository {
	return &sessionEventRepo{db: db}
}

func (r *sessionEventRepo) Append(ctx context.Context, sessionID string, eventType model.SessionEventType, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_events (session_id, event_type, created_at)
		VALUES (?, ?, ?)
	`, sessionID, eventType, at)
	return err
}

func (r *sessionEventRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SessionEvent, error) {
	var events []model.SessionEvent
	// The autoincrement id is the append order; it breaks ties between
	// events sharing a created_at millisecond.
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM session_events
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	return events, err
}
