// Package alerts provides HTTP handlers for alert queries and
// acknowledgement.
package alerts

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/ishan121028/RadiologyAI/internal/api/respond"
	"github.com/ishan121028/RadiologyAI/internal/metrics"
	"github.com/ishan121028/RadiologyAI/internal/models"
	"github.com/ishan121028/RadiologyAI/internal/storage"
)

// Handler serves alert endpoints.
type Handler struct {
	repo storage.AlertRepository
}

// NewHandler creates an alert handler.
func NewHandler(repo storage.AlertRepository) *Handler {
	return &Handler{repo: repo}
}

// List returns alerts, optionally filtered by level, patient, and
// acknowledgement state.
//
//	GET /api/v1/alerts?level=RED&unacknowledged=true&patient_id=PAT001&limit=50
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.AlertFilter{Limit: 100}

	if lvl := r.URL.Query().Get("level"); lvl != "" {
		level := models.ParseAlertLevel(lvl)
		if !strings.EqualFold(lvl, string(level)) {
			api.JSONError(w, api.NewValidationError("unknown alert level: "+lvl))
			return
		}
		filter.Level = level
	}
	filter.PatientID = r.URL.Query().Get("patient_id")
	if v := r.URL.Query().Get("unacknowledged"); v != "" {
		filter.Unacknowledged = v == "true" || v == "1"
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 1000 {
			api.JSONError(w, api.NewValidationError("limit must be between 1 and 1000"))
			return
		}
		filter.Limit = limit
	}

	alerts, err := h.repo.List(r.Context(), filter)
	if err != nil {
		log.Printf("list alerts: %v", err)
		api.JSONError(w, api.ErrInternalServer)
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	api.OK(w, alerts)
}

// GetByID returns one alert.
//
//	GET /api/v1/alerts/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.JSONError(w, api.NewNotFound("alert not found: "+id))
			return
		}
		log.Printf("get alert %s: %v", id, err)
		api.JSONError(w, api.ErrInternalServer)
		return
	}
	api.OK(w, alert)
}

type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// Acknowledge marks an alert as acknowledged. The first acknowledgement
// wins; repeating the call returns 409.
//
//	POST /api/v1/alerts/{id}/ack
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.JSONError(w, api.NewBadRequest("invalid request body"))
		return
	}
	if strings.TrimSpace(req.AcknowledgedBy) == "" {
		api.JSONError(w, api.NewValidationError("acknowledged_by is required"))
		return
	}

	err := h.repo.Acknowledge(r.Context(), id, req.AcknowledgedBy, time.Now())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		api.JSONError(w, api.NewNotFound("alert not found: "+id))
		return
	case errors.Is(err, storage.ErrAlreadyAcknowledged):
		api.JSONError(w, api.NewConflict("alert already acknowledged"))
		return
	case err != nil:
		log.Printf("acknowledge alert %s: %v", id, err)
		api.JSONError(w, api.ErrInternalServer)
		return
	}

	metrics.AlertsAcknowledgedTotal.Inc()
	log.Printf("alert %s acknowledged by %s", id, req.AcknowledgedBy)

	alert, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("reload alert %s: %v", id, err)
		api.JSONError(w, api.ErrInternalServer)
		return
	}
	api.OK(w, alert)
}

// Escalations returns unacknowledged critical alerts that are past their
// escalation deadline.
//
//	GET /api/v1/alerts/escalations
func (h *Handler) Escalations(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.repo.ListUnacknowledged(r.Context())
	if err != nil {
		log.Printf("list escalations: %v", err)
		api.JSONError(w, api.ErrInternalServer)
		return
	}

	now := time.Now()
	overdue := []*models.Alert{}
	for _, a := range alerts {
		if a.NeedsEscalation(now) {
			overdue = append(overdue, a)
		}
	}
	api.OK(w, overdue)
}
