package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
)

type SessionRepository interface {
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	FindByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	// FindByStatuses returns sessions in any of the given statuses, ordered
	// by started_at ascending (never-started sessions first).
	FindByStatuses(ctx context.Context, statuses ...model.SessionStatus) ([]model.Session, error)
	SetFinalIntent(ctx context.Context, id string, intent string) error
	MarkStarted(ctx context.Context, id string, at time.Time) error
	SetStatus(ctx context.Context, id string, status model.SessionStatus) error
	MarkEnded(ctx context.Context, id string, at time.Time, by model.EndedBy) error
	DeleteByStatus(ctx context.Context, status model.SessionStatus) (int64, error)
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	session := &model.Session{
		ID:             uuid.NewString(),
		Name:           params.Name,
		OriginalIntent: params.Intent,
		Status:         model.SessionStatusCreated,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, original_intent, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.Name, session.OriginalIntent, session.Status, session.CreatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = ?
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) List(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions ORDER BY created_at DESC
	`)
	return sessions, err
}

func (r *sessionRepo) FindByStatuses(ctx context.Context, statuses ...model.SessionStatus) ([]model.Session, error) {
	query, args, err := sqlx.In(`
		SELECT * FROM sessions
		WHERE status IN (?)
		ORDER BY started_at ASC
	`, statuses)
	if err != nil {
		return nil, err
	}

	var sessions []model.Session
	err = r.db.SelectContext(ctx, &sessions, query, args...)
	return sessions, err
}

func (r *sessionRepo) SetFinalIntent(ctx context.Context, id string, intent string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET final_intent = ? WHERE id = ?
	`, intent, id)
	return err
}

func (r *sessionRepo) MarkStarted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'active',
			started_at = ?
		WHERE id = ? AND status = 'created'
	`, at, id)
	return err
}

func (r *sessionRepo) SetStatus(ctx context.Context, id string, status model.SessionStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = ? WHERE id = ?
	`, status, id)
	return err
}

func (r *sessionRepo) MarkEnded(ctx context.Context, id string, at time.Time, by model.EndedBy) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'ended',
			ended_at = ?,
			ended_by = ?
		WHERE id = ? AND status IN ('active', 'paused')
	`, at, by, id)
	return err
}

func (r *sessionRepo) DeleteByStatus(ctx context.Context, status model.SessionStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE status = ?
	`, status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
