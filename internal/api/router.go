package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ishan121028/RadiologyAI/internal/api/alerts"
	"github.com/ishan121028/RadiologyAI/internal/api/middleware"
	"github.com/ishan121028/RadiologyAI/internal/api/system"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	alertHandler := alerts.NewHandler(s.alerts)
	systemHandler := system.NewHandler(s.agg, s.files, s.mon, s.index)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Get("/escalations", alertHandler.Escalations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", alertHandler.GetByID)
				r.Post("/ack", alertHandler.Acknowledge)
			})
		})

		r.Get("/stats", systemHandler.Stats)
		r.Get("/monitor", systemHandler.Monitor)
		r.Get("/search", systemHandler.Search)
	})

	// Health check (public)
	r.Get("/healthz", s.handleHealth)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	OK(w, status)
}
