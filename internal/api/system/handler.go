// Package system provides HTTP handlers for pipeline statistics, search,
// and monitoring status.
package system

import (
	"net/http"
	"strconv"

	api "github.com/ishan121028/RadiologyAI/internal/api/respond"
	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/monitor"
	"github.com/ishan121028/RadiologyAI/internal/search"
	"github.com/ishan121028/RadiologyAI/internal/stats"
)

// MonitorSource exposes live watcher statistics.
type MonitorSource interface {
	Stats() monitor.Stats
}

// Handler serves system endpoints.
type Handler struct {
	agg   *stats.Aggregator
	files *filestore.Manager
	mon   MonitorSource
	index *search.Index
}

// NewHandler creates a system handler. mon and index may be nil.
func NewHandler(agg *stats.Aggregator, files *filestore.Manager, mon MonitorSource, index *search.Index) *Handler {
	return &Handler{agg: agg, files: files, mon: mon, index: index}
}

// statsResponse combines pipeline counters with filesystem state.
type statsResponse struct {
	Pipeline stats.Snapshot  `json:"pipeline"`
	Files    filestore.Stats `json:"files"`
}

// Stats returns processing statistics.
//
//	GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	api.OK(w, statsResponse{
		Pipeline: h.agg.Snapshot(),
		Files:    h.files.Statistics(),
	})
}

// Monitor returns the file watcher status.
//
//	GET /api/v1/monitor
func (h *Handler) Monitor(w http.ResponseWriter, r *http.Request) {
	if h.mon == nil {
		api.JSONError(w, api.NewNotFound("monitoring is not enabled"))
		return
	}
	api.OK(w, h.mon.Stats())
}

type searchResponse struct {
	Query   string          `json:"query"`
	Total   int             `json:"total"`
	Results []search.Result `json:"results"`
}

// Search queries the report index.
//
//	GET /api/v1/search?q=pulmonary+embolism&limit=20
//	GET /api/v1/search?patient_id=PAT001
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		api.JSONError(w, api.NewNotFound("search is not enabled"))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			api.JSONError(w, api.NewValidationError("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	query := r.URL.Query().Get("q")
	patient := r.URL.Query().Get("patient_id")

	var results []search.Result
	switch {
	case patient != "":
		results = h.index.SearchPatient(patient, limit)
		query = patient
	case query != "":
		results = h.index.Search(query, limit)
	default:
		api.JSONError(w, api.NewValidationError("q or patient_id is required"))
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	api.OK(w, searchResponse{Query: query, Total: len(results), Results: results})
}
