package models

import "time"

// AlertLevel represents the severity tier of a radiology finding.
type AlertLevel string

const (
	AlertRed    AlertLevel = "RED"
	AlertOrange AlertLevel = "ORANGE"
	AlertYellow AlertLevel = "YELLOW"
	AlertGreen  AlertLevel = "GREEN"
)

// AlertLevels lists all tiers in descending severity order.
var AlertLevels = []AlertLevel{AlertRed, AlertOrange, AlertYellow, AlertGreen}

// Rank returns the numeric severity of a level. Higher is more severe.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertRed:
		return 3
	case AlertOrange:
		return 2
	case AlertYellow:
		return 1
	default:
		return 0
	}
}

// Critical reports whether the level is one of the top two tiers, which
// are copied into the alerts directory and are eligible for escalation.
func (l AlertLevel) Critical() bool {
	return l == AlertRed || l == AlertOrange
}

// Dir returns the lowercase directory name used under alerts/.
func (l AlertLevel) Dir() string {
	switch l {
	case AlertRed:
		return "red"
	case AlertOrange:
		return "orange"
	case AlertYellow:
		return "yellow"
	default:
		return "green"
	}
}

// ParseAlertLevel converts a string to an AlertLevel.
// Unknown values default to GREEN.
func ParseAlertLevel(s string) AlertLevel {
	switch s {
	case "RED", "red":
		return AlertRed
	case "ORANGE", "orange":
		return AlertOrange
	case "YELLOW", "yellow":
		return AlertYellow
	default:
		return AlertGreen
	}
}

// Alert is one critical-finding alert produced for a processed document.
type Alert struct {
	ID                 string     `json:"alert_id"`
	Document           string     `json:"document"`
	PatientID          string     `json:"patient_id"`
	Level              AlertLevel `json:"alert_level"`
	Conditions         []string   `json:"matched_conditions"`
	FindingsSummary    string     `json:"findings_summary"`
	RecommendedActions []string   `json:"recommended_actions"`
	SeverityScore      float64    `json:"severity_score"`
	TreatmentMinutes   int        `json:"estimated_treatment_minutes"`
	CreatedAt          time.Time  `json:"created_at"`
	EscalationDeadline time.Time  `json:"escalation_deadline,omitempty"`
	EscalationTarget   string     `json:"escalation_target,omitempty"`
	Acknowledged       bool       `json:"acknowledged"`
	AcknowledgedAt     *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy     string     `json:"acknowledged_by,omitempty"`
}

// NeedsEscalation reports whether the alert is overdue at the given time.
// Only unacknowledged RED and ORANGE alerts ever escalate; YELLOW and GREEN
// never do, regardless of elapsed time.
func (a *Alert) NeedsEscalation(now time.Time) bool {
	if a.Acknowledged {
		return false
	}
	if !a.Level.Critical() {
		return false
	}
	return !now.Before(a.EscalationDeadline)
}

// Acknowledge marks the alert as acknowledged. The first acknowledgement
// wins: once set, the timestamp and actor are immutable and subsequent
// calls return false.
func (a *Alert) Acknowledge(by string, now time.Time) bool {
	if a.Acknowledged {
		return false
	}
	t := now.UTC()
	a.Acknowledged = true
	a.AcknowledgedAt = &t
	a.AcknowledgedBy = by
	return true
}
