package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/trackerd/internal/activetime"
	apperrors "github.com/driftwatch/trackerd/internal/errors"
	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/sse"
)

// CapturePoller is the poller surface the state machine drives. The state
// machine is the sole owner of the poller lifecycle: every transition that
// should start or stop capture does so here and nowhere else.
type CapturePoller interface {
	Start(sessionID string)
	Stop()
	CheckPermission(ctx context.Context) (bool, error)
}

// SessionSummary is the end-of-session accounting returned by End.
type SessionSummary struct {
	SessionID     string        `json:"sessionId"`
	Name          string        `json:"name"`
	Intent        string        `json:"intent"`
	ActiveMinutes float64       `json:"activeMinutes"`
	PausedMinutes float64       `json:"pausedMinutes"`
	TotalMinutes  float64       `json:"totalMinutes"`
	CaptureCount  int           `json:"captureCount"`
	FeelingCount  int           `json:"feelingCount"`
	EndedBy       model.EndedBy `json:"endedBy"`
}

// StartResult distinguishes a denied OS permission from a real failure:
// the session stays in created, nothing is corrupted, and the caller is
// expected to prompt for permission and retry.
type StartResult struct {
	Started          bool           `json:"started"`
	PermissionDenied bool           `json:"permissionDenied"`
	Session          *model.Session `json:"session,omitempty"`
}

type SessionProgress struct {
	SessionID string              `json:"sessionId"`
	Status    model.SessionStatus `json:"status"`
	activetime.Breakdown
}

type SessionService struct {
	sessions repository.SessionRepository
	events   repository.SessionEventRepository
	captures repository.CaptureRepository
	feelings repository.FeelingRepository
	poller   CapturePoller
	broker   *sse.Broker
	now      func() time.Time
}

func NewSessionService(
	sessions repository.SessionRepository,
	events repository.SessionEventRepository,
	captures repository.CaptureRepository,
	feelings repository.FeelingRepository,
	poller CapturePoller,
	broker *sse.Broker,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		events:   events,
		captures: captures,
		feelings: feelings,
		poller:   poller,
		broker:   broker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Intent = strings.TrimSpace(params.Intent)
	if params.Intent == "" {
		return nil, apperrors.EmptyText("intent")
	}

	session, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("sessionId", session.ID).Str("name", session.Name).Msg("session created")
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.load(ctx, id)
}

func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

// ConfirmIntent records the user's final intent. It is not validated
// against status; callers only invoke it during session setup.
func (s *SessionService) ConfirmIntent(ctx context.Context, id string, finalIntent string) (*model.Session, error) {
	finalIntent = strings.TrimSpace(finalIntent)
	if finalIntent == "" {
		return nil, apperrors.EmptyText("intent")
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SetFinalIntent(ctx, id, finalIntent); err != nil {
		return nil, apperrors.Database(err)
	}
	session.FinalIntent = &finalIntent
	return session, nil
}

// Start transitions created → active. The OS permission is probed first;
// a denial is a distinguished non-error result. Only one session may be
// active or paused at a time.
func (s *SessionService) Start(ctx context.Context, id string) (*StartResult, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusCreated {
		return nil, apperrors.InvalidTransition("start", string(session.Status))
	}

	running, err := s.sessions.FindByStatuses(ctx, model.SessionStatusActive, model.SessionStatusPaused)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if len(running) > 0 {
		return nil, apperrors.Conflict(
			fmt.Sprintf("session %s is already %s", running[0].ID, running[0].Status))
	}

	granted, err := s.poller.CheckPermission(ctx)
	if err != nil {
		return nil, apperrors.External("permission probe", err)
	}
	if !granted {
		log.Warn().Str("sessionId", id).Msg("start refused: OS permission not granted")
		return &StartResult{PermissionDenied: true, Session: session}, nil
	}

	startedAt := s.now()
	if err := s.sessions.MarkStarted(ctx, id, startedAt); err != nil {
		return nil, apperrors.Database(err)
	}
	s.poller.Start(id)

	session.Status = model.SessionStatusActive
	session.StartedAt = &startedAt

	log.Info().Str("sessionId", id).Msg("session started")
	return &StartResult{Started: true, Session: session}, nil
}

// Pause transitions active → paused: the poller stops, then the paused
// event is appended.
func (s *SessionService) Pause(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, apperrors.InvalidTransition("pause", string(session.Status))
	}

	s.poller.Stop()

	if err := s.sessions.SetStatus(ctx, id, model.SessionStatusPaused); err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.events.Append(ctx, id, model.SessionEventPaused, s.now()); err != nil {
		return nil, apperrors.Database(err)
	}
	session.Status = model.SessionStatusPaused

	log.Info().Str("sessionId", id).Msg("session paused")
	return session, nil
}

// Resume transitions paused → active and restarts the poller.
func (s *SessionService) Resume(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusPaused {
		return nil, apperrors.InvalidTransition("resume", string(session.Status))
	}

	if err := s.sessions.SetStatus(ctx, id, model.SessionStatusActive); err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.events.Append(ctx, id, model.SessionEventResumed, s.now()); err != nil {
		return nil, apperrors.Database(err)
	}
	s.poller.Start(id)
	session.Status = model.SessionStatusActive

	log.Info().Str("sessionId", id).Msg("session resumed")
	return session, nil
}

// End terminates the session from active or paused and returns the final
// accounting. ended is terminal: no later operation may leave it.
func (s *SessionService) End(ctx context.Context, id string, by model.EndedBy) (*SessionSummary, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive && session.Status != model.SessionStatusPaused {
		return nil, apperrors.InvalidTransition("end", string(session.Status))
	}

	s.poller.Stop()

	endedAt := s.now()
	if err := s.sessions.MarkEnded(ctx, id, endedAt, by); err != nil {
		return nil, apperrors.Database(err)
	}
	session.Status = model.SessionStatusEnded
	session.EndedAt = &endedAt
	session.EndedBy = &by

	summary, err := s.buildSummary(ctx, session, by)
	if err != nil {
		return nil, err
	}

	s.broker.PublishJSON(sse.EventSessionEnded, map[string]any{
		"sessionId": id,
		"endedBy":   by,
	})

	log.Info().
		Str("sessionId", id).
		Str("endedBy", string(by)).
		Float64("activeMinutes", summary.ActiveMinutes).
		Msg("session ended")
	return summary, nil
}

// CheckStaleOnLaunch force-ends every session left active or paused by a
// previous process: neither the poller nor in-memory status survive a
// restart, so any non-terminal session found at launch is stale by
// definition. Returns the summary of the last session ended, or nil.
func (s *SessionService) CheckStaleOnLaunch(ctx context.Context) (*SessionSummary, error) {
	s.poller.Stop()

	stale, err := s.sessions.FindByStatuses(ctx, model.SessionStatusActive, model.SessionStatusPaused)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	var last *SessionSummary
	for _, session := range stale {
		summary, err := s.End(ctx, session.ID, model.EndedByAuto)
		if err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to end stale session")
			continue
		}
		last = summary
	}

	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Msg("ended stale sessions from previous run")
	}
	return last, nil
}

// CleanupAbandoned deletes sessions still in created status: setup flows
// that never started and carry no activity data worth preserving.
func (s *SessionService) CleanupAbandoned(ctx context.Context) (int64, error) {
	count, err := s.sessions.DeleteByStatus(ctx, model.SessionStatusCreated)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up abandoned sessions")
	}
	return count, nil
}

func (s *SessionService) CreateFeeling(ctx context.Context, id string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.EmptyText("feeling text")
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if session.Status != model.SessionStatusActive && session.Status != model.SessionStatusPaused {
		return apperrors.InvalidTransition("record feeling", string(session.Status))
	}

	if err := s.feelings.Create(ctx, id, text, s.now()); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// Progress returns the live time breakdown for a session, using its actual
// end as the boundary once terminal.
func (s *SessionService) Progress(ctx context.Context, id string) (*SessionProgress, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListBySession(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	breakdown := activetime.Compute(session.StartedAt, events, activetime.EndBoundary(session, s.now()))
	return &SessionProgress{
		SessionID: id,
		Status:    session.Status,
		Breakdown: breakdown.Rounded(),
	}, nil
}

// CapturesInRange returns the raw captures within [from, to], the
// evidence lookup behind report drill-downs.
func (s *SessionService) CapturesInRange(ctx context.Context, id string, from, to time.Time) ([]model.Capture, error) {
	captures, err := s.captures.ListByRange(ctx, id, from.UTC(), to.UTC())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return captures, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session")
	}
	return session, nil
}

func (s *SessionService) buildSummary(ctx context.Context, session *model.Session, by model.EndedBy) (*SessionSummary, error) {
	events, err := s.events.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	captureCount, err := s.captures.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	feelingCount, err := s.feelings.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	breakdown := activetime.Compute(session.StartedAt, events, *session.EndedAt).Rounded()
	return &SessionSummary{
		SessionID:     session.ID,
		Name:          session.Name,
		Intent:        session.DisplayIntent(),
		ActiveMinutes: breakdown.ActiveMinutes,
		PausedMinutes: breakdown.PausedMinutes,
		TotalMinutes:  breakdown.TotalMinutes,
		CaptureCount:  captureCount,
		FeelingCount:  feelingCount,
		EndedBy:       by,
	}, nil
}
