package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

func fastOptions() *Options {
	return &Options{
		SettleDelay:      5 * time.Millisecond,
		SettleRecheck:    5 * time.Millisecond,
		MaxSettleRetries: 3,
		Workers:          2,
	}
}

func newTestMonitor(t *testing.T, procs ...Processor) (*Monitor, *filestore.Manager) {
	t.Helper()

	fsm, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	m, err := New(fsm, fastOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, p := range procs {
		m.AddProcessor(p)
	}
	return m, fsm
}

func writeIncoming(t *testing.T, fsm *filestore.Manager, name string) string {
	t.Helper()
	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'r'}, filestore.MinFileSize)...)
	path := filepath.Join(fsm.IncomingDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

type recordingProcessor struct {
	mu   sync.Mutex
	docs []*models.Document
	err  error
}

func (p *recordingProcessor) Name() string { return "recording" }

func (p *recordingProcessor) Process(ctx context.Context, doc *models.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
	return p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}

func (p *recordingProcessor) last() *models.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.docs) == 0 {
		return nil
	}
	return p.docs[len(p.docs)-1]
}

type panicProcessor struct{}

func (panicProcessor) Name() string                                    { return "panicky" }
func (panicProcessor) Process(context.Context, *models.Document) error { panic("boom") }

func TestIsReportFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"scan_P100.pdf", true},
		{"SCAN.PDF", true},
		{"/data/incoming/report.pdf", true},
		{"notes.txt", false},
		{".hidden.pdf", false},
		{"~lockfile.pdf", false},
		{"archive.pdf.bak", false},
	}
	for _, tt := range tests {
		if got := isReportFile(tt.path); got != tt.want {
			t.Errorf("isReportFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestProcessesPreexistingFile(t *testing.T) {
	rec := &recordingProcessor{}
	m, fsm := newTestMonitor(t, rec)

	writeIncoming(t, fsm, "scan_P100.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	eventually(t, 3*time.Second, func() bool { return rec.count() == 1 }, "document never dispatched")

	doc := rec.last()
	if doc.Filename != "scan_P100.pdf" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if doc.State != models.StateProcessing {
		t.Errorf("State = %q, want processing", doc.State)
	}
	if filepath.Dir(doc.Path) != fsm.ProcessingDir() {
		t.Errorf("Path = %q, want file moved to processing/", doc.Path)
	}
	if doc.ContentHash == "" || doc.SizeBytes == 0 {
		t.Errorf("validation info missing: %+v", doc)
	}

	eventually(t, time.Second, func() bool { return m.Stats().FilesProcessed == 1 }, "stats not updated")
}

func TestProcessesWatchedFile(t *testing.T) {
	rec := &recordingProcessor{}
	m, fsm := newTestMonitor(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	// File arrives after the watcher is up.
	writeIncoming(t, fsm, "scan_P200.pdf")

	eventually(t, 3*time.Second, func() bool { return rec.count() == 1 }, "watched file never dispatched")
}

func TestInvalidFileRoutedToFailed(t *testing.T) {
	rec := &recordingProcessor{}
	m, fsm := newTestMonitor(t, rec)

	// Too small, and not a real PDF.
	bad := filepath.Join(fsm.IncomingDir(), "bad.pdf")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	failedPath := filepath.Join(fsm.FailedDir(), "bad.pdf")
	eventually(t, 3*time.Second, func() bool {
		_, err := os.Stat(failedPath)
		return err == nil
	}, "invalid file not moved to failed/")

	if _, err := os.Stat(failedPath + ".error"); err != nil {
		t.Errorf("missing error sidecar: %v", err)
	}
	if rec.count() != 0 {
		t.Error("invalid file reached processors")
	}
}

func TestPanicIsolation(t *testing.T) {
	rec := &recordingProcessor{}
	m, fsm := newTestMonitor(t, panicProcessor{}, rec)

	writeIncoming(t, fsm, "scan_P300.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	// The panicking processor is contained; the recorder still runs.
	eventually(t, 3*time.Second, func() bool { return rec.count() == 1 }, "second processor never ran")
	eventually(t, time.Second, func() bool { return m.Stats().Errors == 1 }, "panic not counted as error")
}

func TestProcessorErrorAllowsRetry(t *testing.T) {
	rec := &recordingProcessor{err: errors.New("transient")}
	m, fsm := newTestMonitor(t, rec)

	path := writeIncoming(t, fsm, "scan_P400.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	eventually(t, 3*time.Second, func() bool { return rec.count() == 1 }, "document never dispatched")

	// The inflight entry was released, so the same path can be enqueued
	// again after another event.
	m.inflightMu.Lock()
	_, held := m.inflight[path]
	m.inflightMu.Unlock()
	if held {
		t.Error("failed path still held in flight, retry impossible")
	}
}

func TestSettleOutcomes(t *testing.T) {
	m, fsm := newTestMonitor(t)

	t.Run("stable", func(t *testing.T) {
		path := writeIncoming(t, fsm, "stable.pdf")
		if got := m.settle(context.Background(), path); got != settleStable {
			t.Errorf("settle = %v, want stable", got)
		}
	})

	t.Run("vanished", func(t *testing.T) {
		missing := filepath.Join(fsm.IncomingDir(), "ghost.pdf")
		if got := m.settle(context.Background(), missing); got != settleVanished {
			t.Errorf("settle = %v, want vanished", got)
		}
	})

	t.Run("aborted", func(t *testing.T) {
		path := writeIncoming(t, fsm, "aborted.pdf")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if got := m.settle(ctx, path); got != settleAborted {
			t.Errorf("settle = %v, want aborted", got)
		}
	})

	t.Run("unstable", func(t *testing.T) {
		path := writeIncoming(t, fsm, "growing.pdf")

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return
			}
			defer f.Close()
			for {
				select {
				case <-stop:
					return
				default:
					f.Write([]byte("more"))
					time.Sleep(time.Millisecond)
				}
			}
		}()

		got := m.settle(context.Background(), path)
		close(stop)
		wg.Wait()

		if got != settleUnstable {
			t.Errorf("settle = %v, want unstable", got)
		}
	})
}

func TestStopIdempotent(t *testing.T) {
	m, _ := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.Stop()
	m.Stop()

	if m.Stats().Watching {
		t.Error("Watching = true after Stop")
	}
}
