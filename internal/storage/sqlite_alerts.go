package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// AlertFilter narrows List results. Zero values mean no filtering.
type AlertFilter struct {
	Level          models.AlertLevel
	PatientID      string
	Unacknowledged bool
	Limit          int
}

// AlertRepository persists and queries alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error)
	ListUnacknowledged(ctx context.Context) ([]*models.Alert, error)
	Acknowledge(ctx context.Context, id, by string, at time.Time) error
	CountByLevel(ctx context.Context) (map[models.AlertLevel]int, error)
}

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, document, patient_id, level, conditions_json, findings_summary,
	recommendations_json, severity_score, treatment_minutes, created_at,
	escalation_deadline, escalation_target, acknowledged, acknowledged_at, acknowledged_by`

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	conditionsJSON, err := json.Marshal(alert.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	recsJSON, err := json.Marshal(alert.RecommendedActions)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		alert.ID, alert.Document, alert.PatientID, string(alert.Level),
		string(conditionsJSON), alert.FindingsSummary, string(recsJSON),
		alert.SeverityScore, alert.TreatmentMinutes, alert.CreatedAt,
		nullTime(alert.EscalationDeadline), nullString(alert.EscalationTarget),
		boolToInt(alert.Acknowledged), alert.AcknowledgedAt, nullString(alert.AcknowledgedBy),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return alert, err
}

func (r *sqliteAlertRepo) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	var conds []string
	var args []any
	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, string(filter.Level))
	}
	if filter.PatientID != "" {
		conds = append(conds, "patient_id = ?")
		args = append(args, filter.PatientID)
	}
	if filter.Unacknowledged {
		conds = append(conds, "acknowledged = 0")
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.queryAlerts(ctx, query, args...)
}

// ListUnacknowledged returns unacknowledged critical alerts, oldest
// first, for the escalation sweeper.
func (r *sqliteAlertRepo) ListUnacknowledged(ctx context.Context) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE acknowledged = 0 AND level IN ('RED', 'ORANGE')
		ORDER BY created_at`
	return r.queryAlerts(ctx, query)
}

// Acknowledge marks the alert acknowledged. The first acknowledgement
// wins: a second attempt returns ErrAlreadyAcknowledged and the stored
// actor and timestamp are unchanged.
func (r *sqliteAlertRepo) Acknowledge(ctx context.Context, id, by string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET acknowledged = 1, acknowledged_at = ?, acknowledged_by = ? WHERE id = ? AND acknowledged = 0",
		at.UTC(), by, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish missing from already acknowledged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyAcknowledged
	}
	return nil
}

func (r *sqliteAlertRepo) CountByLevel(ctx context.Context) (map[models.AlertLevel]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT level, COUNT(*) FROM alerts GROUP BY level")
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AlertLevel]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.AlertLevel(level)] = n
	}
	return counts, rows.Err()
}

func (r *sqliteAlertRepo) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.Alert, error) {
	var (
		alert          models.Alert
		level          string
		conditionsJSON string
		recsJSON       string
		deadline       sql.NullTime
		target         sql.NullString
		acknowledged   int
		ackedAt        sql.NullTime
		ackedBy        sql.NullString
	)

	err := row.Scan(
		&alert.ID, &alert.Document, &alert.PatientID, &level,
		&conditionsJSON, &alert.FindingsSummary, &recsJSON,
		&alert.SeverityScore, &alert.TreatmentMinutes, &alert.CreatedAt,
		&deadline, &target, &acknowledged, &ackedAt, &ackedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.Level = models.AlertLevel(level)
	if err := json.Unmarshal([]byte(conditionsJSON), &alert.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(recsJSON), &alert.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	if deadline.Valid {
		alert.EscalationDeadline = deadline.Time
	}
	alert.EscalationTarget = target.String
	alert.Acknowledged = acknowledged != 0
	if ackedAt.Valid {
		t := ackedAt.Time
		alert.AcknowledgedAt = &t
	}
	alert.AcknowledgedBy = ackedBy.String
	return &alert, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
