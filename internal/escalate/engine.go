// Package escalate turns classified findings into prioritized alerts with
// escalation deadlines, target roles, and treatment recommendations.
package escalate

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ishan121028/RadiologyAI/internal/classify"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Escalation windows in minutes from alert creation. GREEN never escalates
// and has no entry. YELLOW carries a window for deadline bookkeeping but is
// excluded from escalation checks; only the top two tiers page anyone.
var escalationWindows = map[models.AlertLevel]time.Duration{
	models.AlertRed:    5 * time.Minute,
	models.AlertOrange: 15 * time.Minute,
	models.AlertYellow: 60 * time.Minute,
}

// escalationTargets maps a tier to the role paged when the alert is overdue.
var escalationTargets = map[models.AlertLevel]string{
	models.AlertRed:    "attending_physician",
	models.AlertOrange: "senior_resident",
	models.AlertYellow: "resident",
}

// treatmentMinutes is the estimated time-to-treatment budget per tier.
var treatmentMinutes = map[models.AlertLevel]int{
	models.AlertRed:    15,
	models.AlertOrange: 60,
	models.AlertYellow: 240,
	models.AlertGreen:  1440,
}

// EscalationWindow returns the escalation window for a tier. The second
// return is false for GREEN, which never escalates.
func EscalationWindow(level models.AlertLevel) (time.Duration, bool) {
	w, ok := escalationWindows[level]
	return w, ok
}

// TreatmentUrgency returns the estimated time-to-treatment in minutes.
func TreatmentUrgency(level models.AlertLevel) int {
	if m, ok := treatmentMinutes[level]; ok {
		return m
	}
	return treatmentMinutes[models.AlertGreen]
}

// EngineStats tracks engine counters using atomics for lock-free access.
type EngineStats struct {
	AlertsCreated atomic.Int64
	AlertsDropped atomic.Int64
}

// Options configures the engine.
type Options struct {
	// AlertBufferSize is the size of the alert channel buffer.
	AlertBufferSize int
}

// DefaultOptions returns default engine options.
func DefaultOptions() *Options {
	return &Options{AlertBufferSize: 100}
}

// Engine creates Alert records from classification results and publishes
// them on a buffered channel for downstream consumers (notification
// dispatch). It holds no per-alert state: acknowledgement lives on the
// alert record and escalation-due is always computed, never stored.
type Engine struct {
	dict   *classify.Dictionary
	alerts chan *models.Alert
	stats  *EngineStats

	// mu serializes sends against Close so a publish can never race the
	// channel close.
	mu     sync.Mutex
	closed bool

	// now is replaceable for tests.
	now func() time.Time
}

// NewEngine creates an alert engine. A nil dictionary selects the built-in
// recommendation tables.
func NewEngine(dict *classify.Dictionary, opts *Options) *Engine {
	if dict == nil {
		dict = classify.DefaultDictionary()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Engine{
		dict:   dict,
		alerts: make(chan *models.Alert, opts.AlertBufferSize),
		stats:  &EngineStats{},
		now:    time.Now,
	}
}

// Alerts returns the channel where created alerts are published.
func (e *Engine) Alerts() <-chan *models.Alert {
	return e.alerts
}

// CreateAlert builds an alert for a classified document. Documents whose
// classification matched no condition produce no alert and return nil.
func (e *Engine) CreateAlert(doc *models.Document, fields models.ExtractionFields, res classify.Result) *models.Alert {
	return e.CreateAlertAt(doc, fields, res, e.now())
}

// CreateAlertAt builds an alert with an explicit creation time.
// The escalation deadline is exactly created_at plus the tier's window;
// GREEN alerts would carry no deadline, but GREEN classifications produce
// no alert at all.
func (e *Engine) CreateAlertAt(doc *models.Document, fields models.ExtractionFields, res classify.Result, now time.Time) *models.Alert {
	if len(res.Conditions) == 0 {
		return nil
	}

	now = now.UTC()
	alert := &models.Alert{
		ID:                 newAlertID(now),
		Document:           doc.Filename,
		PatientID:          fields.PatientID,
		Level:              res.Level,
		Conditions:         res.Conditions,
		FindingsSummary:    findingsSummary(res.Conditions, res.Level),
		RecommendedActions: Recommend(e.dict, res.Conditions),
		SeverityScore:      res.Severity,
		TreatmentMinutes:   TreatmentUrgency(res.Level),
		CreatedAt:          now,
		EscalationTarget:   escalationTargets[res.Level],
	}
	if window, ok := EscalationWindow(res.Level); ok {
		alert.EscalationDeadline = now.Add(window)
	}

	e.stats.AlertsCreated.Add(1)
	e.publish(alert)
	return alert
}

// publish sends the alert on the channel without blocking the pipeline.
func (e *Engine) publish(alert *models.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.alerts <- alert:
	default:
		dropped := e.stats.AlertsDropped.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			log.Printf("warning: alert channel full, dropped %d alerts total", dropped)
		}
	}
}

// StatsSnapshot is a point-in-time copy of engine counters.
type StatsSnapshot struct {
	AlertsCreated int64
	AlertsDropped int64
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() StatsSnapshot {
	return StatsSnapshot{
		AlertsCreated: e.stats.AlertsCreated.Load(),
		AlertsDropped: e.stats.AlertsDropped.Load(),
	}
}

// Close closes the alert channel. Safe to call concurrently with
// CreateAlert: alerts created after Close are counted but not published.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.alerts)
}

// newAlertID generates a unique alert ID. The time prefix keeps IDs
// sortable; the random suffix guarantees uniqueness under concurrent
// creation within the same second.
func newAlertID(now time.Time) string {
	return fmt.Sprintf("ALERT_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}

// findingsSummary builds the one-line physician-facing summary.
func findingsSummary(conditions []string, level models.AlertLevel) string {
	if len(conditions) == 0 {
		return "No critical findings detected"
	}

	joined := strings.Join(conditions, ", ")
	switch level {
	case models.AlertRed:
		return fmt.Sprintf("CRITICAL: %s detected. Immediate intervention required.", strings.ToUpper(joined))
	case models.AlertOrange:
		return fmt.Sprintf("URGENT: %s identified. Prompt evaluation needed.", joined)
	case models.AlertYellow:
		return fmt.Sprintf("FOLLOW-UP: %s noted. Schedule appropriate follow-up.", joined)
	default:
		return fmt.Sprintf("INFO: %s observed.", joined)
	}
}
