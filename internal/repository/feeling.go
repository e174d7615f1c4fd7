package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
)

type FeelingRepository interface {
	Create(ctx context.Context, sessionID string, text string, at time.Time) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Feeling, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

type feelingRepo struct {
	db database.DBTX
}

func NewFeelingRepository(db *sqlx.DB) FeelingRepository {
	return &feelingRepo{db: db}
}

func (r *feelingRepo) Create(ctx context.Context, sessionID string, text string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feelings (session_id, text, created_at)
		VALUES (?, ?, ?)
	`, sessionID, text, at)
	return err
}

func (r *feelingRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Feeling, error) {
	var feelings []model.Feeling
	err := r.db.SelectContext(ctx, &feelings, `
		SELECT * FROM feelings
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	return feelings, err
}

func (r *feelingRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM feelings WHERE session_id = ?
	`, sessionID)
	return count, err
}
