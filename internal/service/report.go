package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/driftwatch/trackerd/internal/activetime"
	"github.com/driftwatch/trackerd/internal/database"
	apperrors "github.com/driftwatch/trackerd/internal/errors"
	"github.com/driftwatch/trackerd/internal/llm"
	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/sse"
)

// ReportView is what GetReport returns. A non-ready report carries only
// its status; a ready one carries the stored analysis plus a freshly
// computed time breakdown.
type ReportView struct {
	Status  model.ReportStatus    `json:"status"`
	Intent  string                `json:"intent,omitempty"`
	Time    *activetime.Breakdown `json:"time,omitempty"`
	Content *model.ReportContent  `json:"content,omitempty"`
}

// ReportService owns report generation: at most one generation runs per
// session at a time, a ready report is never regenerated, and every
// generation ends in exactly one of ready or failed.
type ReportService struct {
	db       *database.DB
	reports  repository.ReportRepository
	sessions repository.SessionRepository
	events   repository.SessionEventRepository
	captures repository.CaptureRepository
	feelings repository.FeelingRepository
	provider llm.Provider
	broker   *sse.Broker
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

func NewReportService(
	db *database.DB,
	reports repository.ReportRepository,
	sessions repository.SessionRepository,
	events repository.SessionEventRepository,
	captures repository.CaptureRepository,
	feelings repository.FeelingRepository,
	provider llm.Provider,
	broker *sse.Broker,
) *ReportService {
	return &ReportService{
		db:       db,
		reports:  reports,
		sessions: sessions,
		events:   events,
		captures: captures,
		feelings: feelings,
		provider: provider,
		broker:   broker,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[string]bool),
	}
}

// StartGeneration kicks off report generation in the background. It is a
// no-op when the session already has a ready report or a generation in
// flight, so callers fire it optimistically.
func (s *ReportService) StartGeneration(ctx context.Context, sessionID string) error {
	ready, err := s.reports.HasReady(ctx, sessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	if ready {
		return nil
	}

	s.mu.Lock()
	if s.inflight[sessionID] {
		s.mu.Unlock()
		return nil
	}
	s.inflight[sessionID] = true
	s.mu.Unlock()

	var reportID string
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		reports := s.reports.WithTx(tx)
		report, err := reports.FindLatestBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		switch {
		case report == nil:
			report, err = reports.Create(ctx, sessionID)
			if err != nil {
				return err
			}
		case report.Status == model.ReportStatusFailed:
			if err := reports.ResetGenerating(ctx, report.ID); err != nil {
				return err
			}
		}
		// A leftover generating row means a previous process died before
		// the launch sweep could mark it failed; reuse it.
		reportID = report.ID
		return nil
	})
	if err != nil {
		s.clearInflight(sessionID)
		return apperrors.Database(err)
	}

	s.wg.Add(1)
	go s.generate(reportID, sessionID)
	return nil
}

// RetryGeneration restarts generation for a session whose current report
// is failed. Ready and generating reports cannot be retried.
func (s *ReportService) RetryGeneration(ctx context.Context, sessionID string) error {
	report, err := s.reports.FindLatestBySession(ctx, sessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	if report == nil {
		return apperrors.NoReport()
	}
	if report.Status != model.ReportStatusFailed {
		return apperrors.InvalidTransition("retry report generation", string(report.Status))
	}

	s.mu.Lock()
	if s.inflight[sessionID] {
		s.mu.Unlock()
		return nil
	}
	s.inflight[sessionID] = true
	s.mu.Unlock()

	if err := s.reports.ResetGenerating(ctx, report.ID); err != nil {
		s.clearInflight(sessionID)
		return apperrors.Database(err)
	}

	s.wg.Add(1)
	go s.generate(report.ID, sessionID)
	return nil
}

// GetReport returns the current report for a session. No report row yet
// reads as generating: by the time a client asks, generation has either
// been kicked off or is about to be.
func (s *ReportService) GetReport(ctx context.Context, sessionID string) (*ReportView, error) {
	report, err := s.reports.FindLatestBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if report == nil || report.Status != model.ReportStatusReady {
		view := &ReportView{Status: model.ReportStatusGenerating}
		if report != nil {
			view.Status = report.Status
		}
		return view, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session")
	}
	events, err := s.events.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	var content model.ReportContent
	if report.Content == nil {
		return nil, apperrors.Internal("ready report has no content")
	}
	if err := json.Unmarshal([]byte(*report.Content), &content); err != nil {
		return nil, apperrors.Internal("stored report content is corrupt")
	}

	breakdown := activetime.Compute(session.StartedAt, events, activetime.EndBoundary(session, s.now())).Rounded()
	return &ReportView{
		Status:  model.ReportStatusReady,
		Intent:  session.DisplayIntent(),
		Time:    &breakdown,
		Content: &content,
	}, nil
}

func (s *ReportService) HasReport(ctx context.Context, sessionID string) (bool, error) {
	ready, err := s.reports.HasReady(ctx, sessionID)
	if err != nil {
		return false, apperrors.Database(err)
	}
	return ready, nil
}

// MarkStaleAsFailedOnLaunch sweeps reports orphaned in generating by a
// previous process. Must run before any new generation starts.
func (s *ReportService) MarkStaleAsFailedOnLaunch(ctx context.Context) (int64, error) {
	count, err := s.reports.MarkAllGeneratingFailed(ctx)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("marked stale generating reports as failed")
	}
	return count, nil
}

// Wait blocks until all in-flight generations finish.
func (s *ReportService) Wait() {
	s.wg.Wait()
}

// generate is the background generation task. It never cancels midway:
// the report it owns always ends in ready or failed.
func (s *ReportService) generate(reportID, sessionID string) {
	defer s.wg.Done()
	defer s.clearInflight(sessionID)

	ctx := context.Background()
	if s.provider == nil {
		s.fail(ctx, reportID, sessionID, "text-generation capability is not configured", nil)
		return
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil || session == nil {
		s.fail(ctx, reportID, sessionID, "session lookup failed", err)
		return
	}
	events, err := s.events.ListBySession(ctx, sessionID)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "event lookup failed", err)
		return
	}
	captures, err := s.captures.ListBySession(ctx, sessionID)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "capture lookup failed", err)
		return
	}
	feelings, err := s.feelings.ListBySession(ctx, sessionID)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "feeling lookup failed", err)
		return
	}

	breakdown := activetime.Compute(session.StartedAt, events, activetime.EndBoundary(session, s.now())).Rounded()
	prompt := buildReportPrompt(session, breakdown, CollapseCaptures(captures), feelings)

	raw, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "text generation failed", err)
		return
	}

	content, err := parseReportContent(raw)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "response failed validation", err)
		return
	}

	serialized, err := json.Marshal(content)
	if err != nil {
		s.fail(ctx, reportID, sessionID, "content serialization failed", err)
		return
	}
	if err := s.reports.MarkReady(ctx, reportID, string(serialized)); err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report ready")
		return
	}

	s.broker.PublishJSON(sse.EventReportReady, map[string]any{"sessionId": sessionID})
	log.Info().Str("sessionId", sessionID).Str("reportId", reportID).Msg("report ready")
}

func (s *ReportService) fail(ctx context.Context, reportID, sessionID, reason string, cause error) {
	log.Error().Err(cause).Str("sessionId", sessionID).Str("reason", reason).Msg("report generation failed")
	if err := s.reports.MarkFailed(ctx, reportID); err != nil {
		log.Error().Err(err).Str("reportId", reportID).Msg("failed to mark report failed")
	}
	s.broker.PublishJSON(sse.EventReportFailed, map[string]any{
		"sessionId": sessionID,
		"reason":    reason,
	})
}

func (s *ReportService) clearInflight(sessionID string) {
	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.mu.Unlock()
}
