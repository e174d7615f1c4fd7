package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/driftwatch/trackerd/internal/errors"
	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
	reportService  *service.ReportService
}

func NewSessionHandler(sessionService *service.SessionService, reportService *service.ReportService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		reportService:  reportService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Get("/", h.ListSessions)
	r.Get("/{sessionID}", h.GetSession)
	r.Post("/{sessionID}/confirm-intent", h.ConfirmIntent)
	r.Post("/{sessionID}/start", h.StartSession)
	r.Post("/{sessionID}/pause", h.PauseSession)
	r.Post("/{sessionID}/resume", h.ResumeSession)
	r.Post("/{sessionID}/end", h.EndSession)
	r.Get("/{sessionID}/progress", h.GetProgress)
	r.Post("/{sessionID}/feelings", h.CreateFeeling)
	r.Get("/{sessionID}/captures", h.ListCaptures)

	return r
}

type createSessionRequest struct {
	Name   string `json:"name"`
	Intent string `json:"intent"`
}

// POST /v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	session, err := h.sessionService.Create(r.Context(), model.CreateSessionParams{
		Name:   req.Name,
		Intent: req.Intent,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

type sessionListItem struct {
	model.Session
	HasReport bool `json:"hasReport"`
}

// GET /v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]sessionListItem, 0, len(sessions))
	for _, session := range sessions {
		hasReport, err := h.reportService.HasReport(r.Context(), session.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		items = append(items, sessionListItem{Session: session, HasReport: hasReport})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type confirmIntentRequest struct {
	Intent string `json:"intent"`
}

// POST /v1/sessions/{sessionID}/confirm-intent
func (h *SessionHandler) ConfirmIntent(w http.ResponseWriter, r *http.Request) {
	var req confirmIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	session, err := h.sessionService.ConfirmIntent(r.Context(), chi.URLParam(r, "sessionID"), req.Intent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.Start(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	// A permission denial is still 200: the UI walks the user through
	// granting the permission and retries.
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/sessions/{sessionID}/pause
func (h *SessionHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Pause(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/resume
func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Resume(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.sessionService.End(r.Context(), sessionID, model.EndedByUser)
	if err != nil {
		writeError(w, err)
		return
	}

	// Generation is fire-and-forget; the report endpoint reports status.
	if err := h.reportService.StartGeneration(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GET /v1/sessions/{sessionID}/progress
func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.sessionService.Progress(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type createFeelingRequest struct {
	Text string `json:"text"`
}

// POST /v1/sessions/{sessionID}/feelings
func (h *SessionHandler) CreateFeeling(w http.ResponseWriter, r *http.Request) {
	var req createFeelingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	if err := h.sessionService.CreateFeeling(r.Context(), chi.URLParam(r, "sessionID"), req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// GET /v1/sessions/{sessionID}/captures?from=...&to=...
func (h *SessionHandler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	captures, err := h.sessionService.CapturesInRange(r.Context(), session.ID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if captures == nil {
		captures = []model.Capture{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": captures})
}

// parseTimeRange reads optional RFC3339 from/to query parameters,
// defaulting to an unbounded range.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().UTC().Add(24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apperrors.ValidationError("invalid 'from' timestamp")
		}
		from = parsed.UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apperrors.ValidationError("invalid 'to' timestamp")
		}
		to = parsed.UTC()
	}
	return from, to, nil
}
