package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
)

type CaptureRepository interface {
	Create(ctx context.Context, params model.CreateCaptureParams) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Capture, error)
	// ListByRange returns captures within [from, to] for evidence lookups.
	ListByRange(ctx context.Context, sessionID string, from, to time.Time) ([]model.Capture, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

type captureRepo struct {
	db database.DBTX
}

func NewCaptureRepository(db *sqlx.DB) CaptureRepository {
	return &captureRepo{db: db}
}

func (r *captureRepo) Create(ctx context.Context, params model.CreateCaptureParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO captures (session_id, window_title, app_name, captured_at)
		VALUES (?, ?, ?, ?)
	`, params.SessionID, params.WindowTitle, params.AppName, params.CapturedAt)
	return err
}

func (r *captureRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Capture, error) {
	var captures []model.Capture
	err := r.db.SelectContext(ctx, &captures, `
		SELECT * FROM captures
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	return captures, err
}

func (r *captureRepo) ListByRange(ctx context.Context, sessionID string, from, to time.Time) ([]model.Capture, error) {
	var captures []model.Capture
	err := r.db.SelectContext(ctx, &captures, `
		SELECT * FROM captures
		WHERE session_id = ?
		AND captured_at >= ?
		AND captured_at <= ?
		ORDER BY id ASC
	`, sessionID, from.UTC(), to.UTC())
	return captures, err
}

func (r *captureRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM captures WHERE session_id = ?
	`, sessionID)
	return count, err
}
