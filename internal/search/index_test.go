package search

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

func alertEntry(id, patient, findings string, created time.Time) *models.Alert {
	return &models.Alert{
		ID:              id,
		Document:        "scan_" + patient + ".pdf",
		PatientID:       patient,
		Level:           models.AlertRed,
		Conditions:      []string{"aortic dissection"},
		FindingsSummary: findings,
		CreatedAt:       created,
	}
}

func TestSearchTokenScoring(t *testing.T) {
	ix := New(0)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	ix.IndexAlert(alertEntry("ALERT_A", "P100", "saddle pulmonary embolism with right heart strain", now))
	ix.IndexAlert(alertEntry("ALERT_B", "P200", "small pleural effusion, no embolism", now))

	results := ix.Search("pulmonary embolism", 10)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// Both tokens plus the phrase: 3 of 3 units.
	if math.Abs(results[0].Score-1.0) > 1e-9 || results[0].Entry.ID != "ALERT_A" {
		t.Errorf("top = %s score %v, want ALERT_A at 1.0", results[0].Entry.ID, results[0].Score)
	}
	// One of two tokens, no phrase: 1 of 3 units.
	if math.Abs(results[1].Score-1.0/3) > 1e-9 || results[1].Entry.ID != "ALERT_B" {
		t.Errorf("second = %s score %v, want ALERT_B at 1/3", results[1].Entry.ID, results[1].Score)
	}
}

func TestSearchPhraseOutranksScattered(t *testing.T) {
	ix := New(0)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	ix.IndexAlert(alertEntry("ALERT_PHRASE", "P100", "acute pulmonary embolism identified", now))
	ix.IndexAlert(alertEntry("ALERT_SCATTER", "P200", "embolism ruled out, pulmonary edema present", now))

	results := ix.Search("pulmonary embolism", 10)
	if len(results) != 2 || results[0].Entry.ID != "ALERT_PHRASE" {
		t.Fatalf("want ALERT_PHRASE first, got %+v", results)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("phrase score %v not above scattered score %v", results[0].Score, results[1].Score)
	}
}

func TestSearchScoreBounds(t *testing.T) {
	ix := New(0)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	ix.IndexAlert(alertEntry("ALERT_A", "P100", "saddle pulmonary embolism with right heart strain", now))
	ix.IndexAlert(alertEntry("ALERT_B", "P200", "pulmonary nodule, no embolism", now))

	queries := []string{"pulmonary embolism", "pulmonary", "saddle pulmonary embolism", "embolism strain nodule"}
	for _, q := range queries {
		for _, r := range ix.Search(q, 10) {
			if r.Score < 0 || r.Score > 1.0 {
				t.Errorf("Search(%q): score %v for %s outside [0,1]", q, r.Score, r.Entry.ID)
			}
		}
	}
}

func TestSearchNoMatch(t *testing.T) {
	ix := New(0)
	ix.IndexAlert(alertEntry("ALERT_A", "P100", "routine study", time.Now()))

	if results := ix.Search("glioblastoma", 10); len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}
	if results := ix.Search("   ", 10); results != nil {
		t.Errorf("blank query returned %v", results)
	}
}

func TestSearchTieBreaksNewer(t *testing.T) {
	ix := New(0)
	older := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	ix.IndexAlert(alertEntry("ALERT_OLD", "P100", "fracture noted", older))
	ix.IndexAlert(alertEntry("ALERT_NEW", "P200", "fracture noted", newer))

	results := ix.Search("fracture", 10)
	if len(results) != 2 || results[0].Entry.ID != "ALERT_NEW" {
		t.Errorf("want ALERT_NEW first, got %+v", results)
	}
}

func TestSearchLimit(t *testing.T) {
	ix := New(0)
	for i := 0; i < 5; i++ {
		ix.IndexAlert(alertEntry(fmt.Sprintf("ALERT_%d", i), "P100", "hemorrhage", time.Now()))
	}
	if results := ix.Search("hemorrhage", 3); len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
}

func TestIndexDocument(t *testing.T) {
	ix := New(0)
	doc := &models.Document{Filename: "scan_P300.pdf", ReceivedAt: time.Now()}
	fields := models.ExtractionFields{
		PatientID:  "P300",
		StudyType:  "CT CHEST",
		Findings:   "bilateral consolidation",
		Impression: "findings consistent with multifocal pneumonia",
	}
	ix.IndexDocument(doc, fields)

	results := ix.Search("pneumonia", 10)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	e := results[0].Entry
	if e.Kind != KindDocument || e.ID != "scan_P300.pdf" || e.PatientID != "P300" {
		t.Errorf("entry = %+v", e)
	}
	if e.Snippet != "findings consistent with multifocal pneumonia" {
		t.Errorf("snippet = %q", e.Snippet)
	}
}

func TestSearchPatientExact(t *testing.T) {
	ix := New(0)
	now := time.Now()
	ix.IndexAlert(alertEntry("ALERT_A", "P100", "x", now.Add(-time.Hour)))
	ix.IndexAlert(alertEntry("ALERT_B", "P1001", "x", now))
	ix.IndexAlert(alertEntry("ALERT_C", "P100", "x", now))

	results := ix.SearchPatient("P100", 10)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (no prefix matching)", len(results))
	}
	if results[0].Entry.ID != "ALERT_C" {
		t.Errorf("want newest first, got %s", results[0].Entry.ID)
	}
}

func TestMaxEntriesEviction(t *testing.T) {
	ix := New(3)
	for i := 0; i < 5; i++ {
		ix.IndexAlert(alertEntry(fmt.Sprintf("ALERT_%d", i), "P100", "finding", time.Now()))
	}

	if ix.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ix.Len())
	}
	// The oldest two were dropped.
	if results := ix.Search("alert_0", 10); len(results) != 0 {
		t.Errorf("evicted entry still searchable")
	}
	if results := ix.Search("alert_4", 10); len(results) != 1 {
		t.Errorf("newest entry missing")
	}
}

func TestSnippetTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "verylongfinding "
	}
	ix := New(0)
	ix.IndexAlert(alertEntry("ALERT_LONG", "P100", long, time.Now()))

	results := ix.Search("verylongfinding", 1)
	if len(results) != 1 {
		t.Fatal("expected one result")
	}
	snip := results[0].Entry.Snippet
	if len(snip) != 163 || snip[160:] != "..." {
		t.Errorf("snippet len = %d, want 160 + ellipsis", len(snip))
	}
}
