package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/classify"
	"github.com/ishan121028/RadiologyAI/internal/escalate"
	"github.com/ishan121028/RadiologyAI/internal/extract"
	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/models"
	"github.com/ishan121028/RadiologyAI/internal/stats"
)

type fakeExtractor struct {
	result *models.ExtractionResult
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error) {
	return f.result, f.err
}

type fakeStore struct {
	alerts []*models.Alert
	err    error
}

func (f *fakeStore) Create(ctx context.Context, alert *models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

type fakeIndex struct {
	alerts    []*models.Alert
	documents []string
}

func (f *fakeIndex) IndexAlert(alert *models.Alert) { f.alerts = append(f.alerts, alert) }

func (f *fakeIndex) IndexDocument(doc *models.Document, fields models.ExtractionFields) {
	f.documents = append(f.documents, doc.Filename)
}

type harness struct {
	proc  *DocumentProcessor
	fsm   *filestore.Manager
	store *fakeStore
	index *fakeIndex
	agg   *stats.Aggregator
}

func newHarness(t *testing.T, ex extract.Extractor) *harness {
	t.Helper()

	fsm, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}

	store := &fakeStore{}
	index := &fakeIndex{}
	agg := stats.New()
	cl := classify.New(classify.DefaultDictionary())
	engine := escalate.NewEngine(nil, nil)

	return &harness{
		proc:  NewDocumentProcessor(fsm, ex, cl, engine, store, index, agg),
		fsm:   fsm,
		store: store,
		index: index,
		agg:   agg,
	}
}

// stageDocument places a file in the processing directory, mirroring what
// the monitor does before dispatch.
func (h *harness) stageDocument(t *testing.T, name string) *models.Document {
	t.Helper()
	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'d'}, filestore.MinFileSize)...)
	path := filepath.Join(h.fsm.ProcessingDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return &models.Document{
		Filename:   name,
		Path:       path,
		SizeBytes:  int64(len(content)),
		ReceivedAt: time.Now().UTC(),
		State:      models.StateProcessing,
	}
}

func successResult(findings, impression string) *models.ExtractionResult {
	return &models.ExtractionResult{
		Success: true,
		Fields: models.ExtractionFields{
			PatientID:  "P100",
			Findings:   findings,
			Impression: impression,
		},
	}
}

func TestProcessCriticalDocument(t *testing.T) {
	h := newHarness(t, &fakeExtractor{
		result: successResult("Large filling defect.", "Acute pulmonary embolism."),
	})
	doc := h.stageDocument(t, "scan_P100.pdf")

	if err := h.proc.Process(context.Background(), doc); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if doc.State != models.StateProcessed {
		t.Errorf("State = %q, want processed", doc.State)
	}
	if !strings.Contains(doc.Path, filestore.DirProcessed) {
		t.Errorf("Path = %q, want archived under processed/", doc.Path)
	}

	if len(h.store.alerts) != 1 {
		t.Fatalf("persisted alerts = %d, want 1", len(h.store.alerts))
	}
	alert := h.store.alerts[0]
	if alert.Level != models.AlertRed {
		t.Errorf("Level = %s, want RED", alert.Level)
	}
	if alert.PatientID != "P100" || alert.Document != "scan_P100.pdf" {
		t.Errorf("alert = %+v", alert)
	}

	if len(h.index.alerts) != 1 || len(h.index.documents) != 1 {
		t.Errorf("index: alerts=%d documents=%d, want 1 each", len(h.index.alerts), len(h.index.documents))
	}

	// The critical file gets a copy in the tier directory.
	tierCopy := filepath.Join(h.fsm.Base(), filestore.DirAlerts, models.AlertRed.Dir(), "scan_P100.pdf")
	if _, err := os.Stat(tierCopy); err != nil {
		t.Errorf("missing alert tier copy: %v", err)
	}

	s := h.agg.Snapshot()
	if s.Processed != 1 || s.ByLevel["RED"] != 1 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.LastAlertAt == nil {
		t.Error("LastAlertAt not recorded")
	}
}

func TestProcessRoutineDocumentNoAlert(t *testing.T) {
	h := newHarness(t, &fakeExtractor{
		result: successResult("Clear lungs.", "No acute abnormality."),
	})
	doc := h.stageDocument(t, "scan_P101.pdf")

	if err := h.proc.Process(context.Background(), doc); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(h.store.alerts) != 0 {
		t.Errorf("alerts = %d, want 0 for routine study", len(h.store.alerts))
	}
	if len(h.index.documents) != 1 {
		t.Errorf("document not indexed")
	}
	if s := h.agg.Snapshot(); s.ByLevel["GREEN"] != 1 {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	h := newHarness(t, &fakeExtractor{
		result: &models.ExtractionResult{Success: false, Error: "unreadable scan"},
	})
	doc := h.stageDocument(t, "scan_P102.pdf")

	err := h.proc.Process(context.Background(), doc)
	if err == nil || !strings.Contains(err.Error(), "unreadable scan") {
		t.Fatalf("err = %v, want extraction failure", err)
	}

	if doc.State != models.StateFailed {
		t.Errorf("State = %q, want failed", doc.State)
	}
	failed := filepath.Join(h.fsm.FailedDir(), "scan_P102.pdf")
	if _, err := os.Stat(failed); err != nil {
		t.Errorf("file not in failed/: %v", err)
	}
	if _, err := os.Stat(failed + ".error"); err != nil {
		t.Errorf("missing error sidecar: %v", err)
	}
	if s := h.agg.Snapshot(); s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
}

func TestProcessExtractorError(t *testing.T) {
	h := newHarness(t, &fakeExtractor{err: errors.New("service unreachable")})
	doc := h.stageDocument(t, "scan_P103.pdf")

	if err := h.proc.Process(context.Background(), doc); err == nil {
		t.Fatal("expected error")
	}
	if doc.State != models.StateFailed {
		t.Errorf("State = %q, want failed", doc.State)
	}
}

func TestProcessDuplicateSkipsExtraction(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("extractor must not run for duplicates")}
	h := newHarness(t, ex)

	doc := h.stageDocument(t, "scan_P104.pdf")
	doc.Duplicate = true

	if err := h.proc.Process(context.Background(), doc); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if doc.State != models.StateProcessed {
		t.Errorf("State = %q, want processed", doc.State)
	}
	if len(h.store.alerts) != 0 {
		t.Error("duplicate produced an alert")
	}
	// Duplicates archive as routine.
	if s := h.agg.Snapshot(); s.ByLevel["GREEN"] != 1 {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestProcessPersistFailureNotFatal(t *testing.T) {
	h := newHarness(t, &fakeExtractor{
		result: successResult("", "Acute intracranial bleed."),
	})
	h.store.err = errors.New("db locked")
	doc := h.stageDocument(t, "scan_P105.pdf")

	// Losing the persisted copy is logged, not fatal: the document still
	// archives and the alert is still indexed.
	if err := h.proc.Process(context.Background(), doc); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if doc.State != models.StateProcessed {
		t.Errorf("State = %q, want processed", doc.State)
	}
	if len(h.index.alerts) != 1 {
		t.Errorf("indexed alerts = %d, want 1", len(h.index.alerts))
	}
}
