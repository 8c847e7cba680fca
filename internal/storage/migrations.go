package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Alerts table
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				document TEXT NOT NULL,
				patient_id TEXT NOT NULL,
				level TEXT NOT NULL,
				conditions_json TEXT NOT NULL,
				findings_summary TEXT,
				recommendations_json TEXT NOT NULL,
				severity_score REAL NOT NULL,
				treatment_minutes INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				escalation_deadline DATETIME,
				escalation_target TEXT,
				acknowledged INTEGER NOT NULL DEFAULT 0,
				acknowledged_at DATETIME,
				acknowledged_by TEXT
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_alerts_level ON alerts(level);
			CREATE INDEX IF NOT EXISTS idx_alerts_patient ON alerts(patient_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts(acknowledged);
			CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
