package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
)

type ReportRepository interface {
	Create(ctx context.Context, sessionID string) (*model.Report, error)
	// FindLatestBySession returns the current report for a session: the
	// most recently created row, or nil if none exists.
	FindLatestBySession(ctx context.Context, sessionID string) (*model.Report, error)
	HasReady(ctx context.Context, sessionID string) (bool, error)
	MarkReady(ctx context.Context, id string, content string) error
	MarkFailed(ctx context.Context, id string) error
	ResetGenerating(ctx context.Context, id string) error
	// MarkAllGeneratingFailed sweeps reports orphaned by a process exit.
	MarkAllGeneratingFailed(ctx context.Context) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ReportRepository
}

type reportRepo struct {
	db database.DBTX
}

func NewReportRepository(db *sqlx.DB) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) WithTx(tx *sqlx.Tx) ReportRepository {
	return &reportRepo{db: tx}
}

func (r *reportRepo) Create(ctx context.Context, sessionID string) (*model.Report, error) {
	report := &model.Report{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    model.ReportStatusGenerating,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, session_id, status, created_at)
		VALUES (?, ?, ?, ?)
	`, report.ID, report.SessionID, report.Status, report.CreatedAt)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) FindLatestBySession(ctx context.Context, sessionID string) (*model.Report, error) {
	var report model.Report
	err := r.db.GetContext(ctx, &report, `
		SELECT * FROM reports
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, sessionID)
	return HandleNotFound(&report, err)
}

func (r *reportRepo) HasReady(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM reports
		WHERE session_id = ? AND status = 'ready'
	`, sessionID)
	return count > 0, err
}

func (r *reportRepo) MarkReady(ctx context.Context, id string, content string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'ready', content = ? WHERE id = ?
	`, content, id)
	return err
}

func (r *reportRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'failed', content = NULL WHERE id = ?
	`, id)
	return err
}

func (r *reportRepo) ResetGenerating(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'generating', content = NULL WHERE id = ?
	`, id)
	return err
}

func (r *reportRepo) MarkAllGeneratingFailed(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'failed', content = NULL
		WHERE status = 'generating'
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
