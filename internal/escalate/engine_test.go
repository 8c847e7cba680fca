package escalate

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/classify"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

var testDoc = &models.Document{Filename: "chest_ct_001.pdf"}

func mustCreate(t *testing.T, e *Engine, res classify.Result, now time.Time) *models.Alert {
	t.Helper()
	alert := e.CreateAlertAt(testDoc, models.ExtractionFields{PatientID: "PAT001"}, res, now)
	if alert == nil {
		t.Fatal("CreateAlertAt returned nil")
	}
	return alert
}

func TestCreateAlertDeadlines(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 15, 2, 0, time.UTC)
	e := NewEngine(nil, nil)
	defer e.Close()

	tests := []struct {
		level        models.AlertLevel
		conditions   []string
		wantDeadline time.Time
		wantTarget   string
		wantMinutes  int
	}{
		{models.AlertRed, []string{"pulmonary embolism"}, now.Add(5 * time.Minute), "attending_physician", 15},
		{models.AlertOrange, []string{"pneumonia"}, now.Add(15 * time.Minute), "senior_resident", 60},
		{models.AlertYellow, []string{"cyst"}, now.Add(60 * time.Minute), "resident", 240},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			alert := mustCreate(t, e, classify.Result{Level: tt.level, Conditions: tt.conditions}, now)
			if !alert.EscalationDeadline.Equal(tt.wantDeadline) {
				t.Errorf("EscalationDeadline = %v, want %v", alert.EscalationDeadline, tt.wantDeadline)
			}
			if alert.EscalationTarget != tt.wantTarget {
				t.Errorf("EscalationTarget = %s, want %s", alert.EscalationTarget, tt.wantTarget)
			}
			if alert.TreatmentMinutes != tt.wantMinutes {
				t.Errorf("TreatmentMinutes = %d, want %d", alert.TreatmentMinutes, tt.wantMinutes)
			}
		})
	}
}

func TestCreateAlertNoConditions(t *testing.T) {
	e := NewEngine(nil, nil)
	defer e.Close()

	alert := e.CreateAlert(testDoc, models.ExtractionFields{}, classify.Result{
		Level:      models.AlertGreen,
		Conditions: []string{},
	})
	if alert != nil {
		t.Errorf("expected nil alert for empty conditions, got %+v", alert)
	}
	if got := e.Stats().AlertsCreated; got != 0 {
		t.Errorf("AlertsCreated = %d, want 0", got)
	}
}

func TestAlertIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 15, 2, 0, time.UTC)
	e := NewEngine(nil, nil)
	defer e.Close()

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		alert := mustCreate(t, e, classify.Result{Level: models.AlertRed, Conditions: []string{"hemorrhage"}}, now)
		if !strings.HasPrefix(alert.ID, "ALERT_20260830_141502_") {
			t.Fatalf("ID = %s, want ALERT_20260830_141502_ prefix", alert.ID)
		}
		if len(alert.ID) != len("ALERT_20260830_141502_")+8 {
			t.Fatalf("ID = %s, want 8-char suffix", alert.ID)
		}
		if _, dup := seen[alert.ID]; dup {
			t.Fatalf("duplicate ID %s within same second", alert.ID)
		}
		seen[alert.ID] = struct{}{}
	}
}

func TestNeedsEscalation(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	e := NewEngine(nil, nil)
	defer e.Close()

	red := mustCreate(t, e, classify.Result{Level: models.AlertRed, Conditions: []string{"hemorrhage"}}, now)

	if red.NeedsEscalation(now.Add(4 * time.Minute)) {
		t.Error("RED should not escalate before the 5 minute deadline")
	}
	if !red.NeedsEscalation(now.Add(6 * time.Minute)) {
		t.Error("RED should escalate after the deadline")
	}
	if !red.NeedsEscalation(now.Add(5 * time.Minute)) {
		t.Error("deadline instant itself is overdue")
	}

	// Acknowledged before the deadline: never escalates, even later.
	if !red.Acknowledge("dr.chen", now.Add(3*time.Minute)) {
		t.Fatal("first acknowledgement should succeed")
	}
	if red.NeedsEscalation(now.Add(10 * time.Minute)) {
		t.Error("acknowledged alert must not escalate")
	}

	yellow := mustCreate(t, e, classify.Result{Level: models.AlertYellow, Conditions: []string{"cyst"}}, now)
	if yellow.NeedsEscalation(now.Add(24 * time.Hour)) {
		t.Error("YELLOW never escalates regardless of elapsed time")
	}
}

func TestAcknowledgeFirstWins(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	e := NewEngine(nil, nil)
	defer e.Close()

	alert := mustCreate(t, e, classify.Result{Level: models.AlertOrange, Conditions: []string{"pneumonia"}}, now)

	if !alert.Acknowledge("dr.chen", now.Add(time.Minute)) {
		t.Fatal("first acknowledgement should succeed")
	}
	if alert.Acknowledge("dr.patel", now.Add(2*time.Minute)) {
		t.Error("second acknowledgement should be rejected")
	}
	if alert.AcknowledgedBy != "dr.chen" {
		t.Errorf("AcknowledgedBy = %s, want dr.chen", alert.AcknowledgedBy)
	}
	if !alert.AcknowledgedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("AcknowledgedAt = %v, want original timestamp", alert.AcknowledgedAt)
	}
}

func TestFindingsSummary(t *testing.T) {
	now := time.Now()
	e := NewEngine(nil, nil)
	defer e.Close()

	red := mustCreate(t, e, classify.Result{Level: models.AlertRed, Conditions: []string{"pulmonary embolism"}}, now)
	if want := "CRITICAL: PULMONARY EMBOLISM detected. Immediate intervention required."; red.FindingsSummary != want {
		t.Errorf("summary = %q, want %q", red.FindingsSummary, want)
	}

	orange := mustCreate(t, e, classify.Result{Level: models.AlertOrange, Conditions: []string{"pneumonia"}}, now)
	if !strings.HasPrefix(orange.FindingsSummary, "URGENT: pneumonia") {
		t.Errorf("summary = %q, want URGENT prefix with lowercase condition", orange.FindingsSummary)
	}
}

func TestAlertChannelPublish(t *testing.T) {
	now := time.Now()
	e := NewEngine(nil, &Options{AlertBufferSize: 1})

	first := mustCreate(t, e, classify.Result{Level: models.AlertRed, Conditions: []string{"hemorrhage"}}, now)
	// Buffer is full now; the second publish must not block.
	mustCreate(t, e, classify.Result{Level: models.AlertRed, Conditions: []string{"hemorrhage"}}, now)

	if got := e.Stats().AlertsDropped; got != 1 {
		t.Errorf("AlertsDropped = %d, want 1", got)
	}

	select {
	case got := <-e.Alerts():
		if got.ID != first.ID {
			t.Errorf("received alert %s, want %s", got.ID, first.ID)
		}
	default:
		t.Fatal("expected a buffered alert")
	}

	e.Close()
	if _, ok := <-e.Alerts(); ok {
		t.Error("channel should be closed after Close")
	}
}

func TestCloseConcurrentWithCreate(t *testing.T) {
	now := time.Now()
	res := classify.Result{Level: models.AlertRed, Conditions: []string{"hemorrhage"}}

	// A publish racing Close must never land on the closed channel.
	for i := 0; i < 50; i++ {
		e := NewEngine(nil, &Options{AlertBufferSize: 4})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				e.CreateAlertAt(testDoc, models.ExtractionFields{PatientID: "PAT001"}, res, now)
			}
		}()
		go func() {
			defer wg.Done()
			e.Close()
		}()
		wg.Wait()
		e.Close()
	}
}

func TestRecommend(t *testing.T) {
	dict := classify.DefaultDictionary()

	tests := []struct {
		name       string
		conditions []string
		wantFirst  string
		wantLen    int
	}{
		{
			name:       "pulmonary embolism rule",
			conditions: []string{"pulmonary embolism"},
			wantFirst:  "Initiate anticoagulation therapy immediately",
			wantLen:    3,
		},
		{
			name:       "hematoma matches bleed rule",
			conditions: []string{"subdural hematoma"},
			wantFirst:  "Type and crossmatch blood products",
			wantLen:    3,
		},
		{
			name:       "no rule falls back to standard care",
			conditions: []string{"cyst"},
			wantFirst:  "Standard care protocol",
			wantLen:    1,
		},
		{
			// tension pneumothorax triggers only the pneumothorax rule;
			// duplicates across rules would be removed.
			name:       "actions are deduplicated",
			conditions: []string{"tension pneumothorax", "pneumothorax"},
			wantFirst:  "Chest tube placement if tension pneumothorax",
			wantLen:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(dict, tt.conditions)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d (%v)", len(got), tt.wantLen, got)
			}
			if got[0] != tt.wantFirst {
				t.Errorf("first action = %q, want %q", got[0], tt.wantFirst)
			}
		})
	}
}
