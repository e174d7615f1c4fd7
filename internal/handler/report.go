package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftwatch/trackerd/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetReport)
	r.Post("/retry", h.RetryGeneration)

	return r
}

// GET /v1/sessions/{sessionID}/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	view, err := h.reportService.GetReport(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /v1/sessions/{sessionID}/report/retry
func (h *ReportHandler) RetryGeneration(w http.ResponseWriter, r *http.Request) {
	if err := h.reportService.RetryGeneration(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "generating"})
}
