// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/api/system"
	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/search"
	"github.com/ishan121028/RadiologyAI/internal/stats"
	"github.com/ishan121028/RadiologyAI/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address      string
	QueryTimeout time.Duration // Timeout for storage-backed API calls
	Verbose      bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config *Config
	alerts storage.AlertRepository
	agg    *stats.Aggregator
	files  *filestore.Manager
	mon    system.MonitorSource
	index  *search.Index
	db     *sql.DB
	server *http.Server
}

// New creates a new API server. mon, index, and db may be nil; the
// corresponding endpoints degrade gracefully.
func New(cfg *Config, alerts storage.AlertRepository, agg *stats.Aggregator, files *filestore.Manager, mon system.MonitorSource, index *search.Index, db *sql.DB) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert repository is required")
	}
	if agg == nil {
		return nil, fmt.Errorf("stats aggregator is required")
	}
	if files == nil {
		return nil, fmt.Errorf("file manager is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config: cfg,
		alerts: alerts,
		agg:    agg,
		files:  files,
		mon:    mon,
		index:  index,
		db:     db,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
