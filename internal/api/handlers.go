// Package api exposes HTTP handlers for the activity tracker.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/export"
	"github.com/ElohimLOJ/chester-tracker/internal/observability"
)

const maxBodyBytes = 1 << 20

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/activities", h.listActivities)
		r.Post("/activities", h.createActivity)
		r.Put("/activities/{id}", h.updateActivity)
		r.Delete("/activities/{id}", h.deleteActivity)
		r.Post("/activities/{id}/timer/start", h.startTimer)
		r.Post("/activities/{id}/timer/stop", h.stopTimer)
		r.Post("/activities/{id}/iteration", h.incrementIteration)

		r.Get("/projects", h.projects)
		r.Get("/stats/today", h.todayStats)
		r.Get("/dashboard", h.dashboard)
		r.Get("/analytics/tools", h.toolComparison)

		r.Get("/export/csv", h.exportCSV)
		r.Get("/export/report", h.exportReport)
		r.Get("/calendar/ics", h.exportICS)
		r.Post("/calendar/import", h.importCalendar)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{ActivityFields: req.fields()})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}

	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	activity, err := h.service.UpdateActivity(r.Context(), domain.UpdateActivityInput{ID: id, ActivityFields: req.fields()})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeActivity(w, activity)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), id); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startTimer(w http.ResponseWriter, r *http.Request) {
	h.mutateActivity(w, r, h.service.StartTimer)
}

func (h *Handler) stopTimer(w http.ResponseWriter, r *http.Request) {
	h.mutateActivity(w, r, h.service.StopTimer)
}

func (h *Handler) incrementIteration(w http.ResponseWriter, r *http.Request) {
	h.mutateActivity(w, r, h.service.IncrementIteration)
}

func (h *Handler) mutateActivity(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*domain.Activity, error)) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}
	activity, err := op(r.Context(), id)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeActivity(w, activity)
}

func (h *Handler) projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ProjectsSummary(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) todayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TodayStats(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	days := domain.DefaultDashboardDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	dashboard, err := h.service.Dashboard(r.Context(), days)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) toolComparison(w http.ResponseWriter, r *http.Request) {
	tools, err := h.service.ToolComparison(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ActivitiesNewestFirst(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, activities); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeDownload(w, "text/csv", export.Filename("chester_tracker", "csv", h.service.Now()), &buf)
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReport(&buf, report); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeDownload(w, "text/plain; charset=utf-8", export.Filename("chester_report", "txt", report.GeneratedAt), &buf)
}

func (h *Handler) exportICS(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.RecentActivities(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	now := h.service.Now()
	var buf bytes.Buffer
	if err := export.WriteICS(&buf, activities, now); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeDownload(w, "text/calendar; charset=utf-8", export.Filename("chester_activities", "ics", now), &buf)
}

func (h *Handler) importCalendar(w http.ResponseWriter, r *http.Request) {
	var req CalendarImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	calendarEvents := make([]domain.CalendarEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		calendarEvents = append(calendarEvents, ev.toDomain())
	}

	imported, err := h.service.ImportCalendarEvents(r.Context(), calendarEvents)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarImportResponse{Imported: imported})
}

func (h *Handler) writeDownload(w http.ResponseWriter, contentType, filename string, body io.Reader) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("download interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

// serverError logs the failure and answers with a generic 500.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", observability.RequestID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
}

func activityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "activity id must be an integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// writeActivity encodes the activity, or JSON null when it does not exist.
func writeActivity(w http.ResponseWriter, activity *domain.Activity) {
	if activity == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
