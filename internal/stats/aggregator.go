// Package stats maintains running statistics over the alert and document
// streams. The aggregate is rebuilt from the stream, never persisted.
package stats

import (
	"sync"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Aggregator accumulates processing counters. All methods are safe for
// concurrent use by pipeline workers.
type Aggregator struct {
	mu sync.Mutex

	started        time.Time
	processed      int64
	failed         int64
	byLevel        map[models.AlertLevel]int64
	totalLatency   time.Duration
	latencySamples int64
	lastAlert      time.Time

	now func() time.Time
}

// New creates an aggregator with the clock started.
func New() *Aggregator {
	return &Aggregator{
		started: time.Now(),
		byLevel: make(map[models.AlertLevel]int64),
		now:     time.Now,
	}
}

// RecordProcessed records one successfully processed document with its
// classified tier and end-to-end processing latency.
func (a *Aggregator) RecordProcessed(level models.AlertLevel, latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.processed++
	a.byLevel[level]++
	a.totalLatency += latency
	a.latencySamples++
}

// RecordFailed records one document routed to the failed directory.
func (a *Aggregator) RecordFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed++
}

// RecordAlert records an alert creation time for the last-alert marker.
func (a *Aggregator) RecordAlert(createdAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if createdAt.After(a.lastAlert) {
		a.lastAlert = createdAt
	}
}

// Snapshot is a point-in-time copy of the aggregate.
type Snapshot struct {
	Processed     int64            `json:"documents_processed"`
	Failed        int64            `json:"documents_failed"`
	ByLevel       map[string]int64 `json:"alerts_by_level"`
	AvgLatencyMS  float64          `json:"avg_processing_ms"`
	LastAlertAt   *time.Time       `json:"last_alert_at,omitempty"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	FilesPerHour  float64          `json:"files_per_hour"`
	SuccessRate   float64          `json:"success_rate"`
}

// Snapshot returns the current aggregate.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Processed: a.processed,
		Failed:    a.failed,
		ByLevel:   make(map[string]int64, len(a.byLevel)),
	}
	for level, n := range a.byLevel {
		s.ByLevel[string(level)] = n
	}
	if a.latencySamples > 0 {
		s.AvgLatencyMS = float64(a.totalLatency.Milliseconds()) / float64(a.latencySamples)
	}
	if !a.lastAlert.IsZero() {
		t := a.lastAlert
		s.LastAlertAt = &t
	}

	uptime := a.now().Sub(a.started)
	s.UptimeSeconds = uptime.Seconds()
	if hours := uptime.Hours(); hours > 0 {
		s.FilesPerHour = float64(a.processed) / hours
	}
	if total := a.processed + a.failed; total > 0 {
		s.SuccessRate = float64(a.processed) / float64(total) * 100
	}
	return s
}
