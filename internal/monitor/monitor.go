// Package monitor watches the incoming directory for new radiology report
// files and drives each one through validation and the processing
// pipeline. Discovery stays event-driven while per-file work runs on a
// bounded worker pool, so one slow extraction never stalls intake.
package monitor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/metrics"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Processor handles one validated document after it has been moved to the
// processing directory.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string
	// Process runs the processor on the document. Errors are isolated:
	// one failing processor does not prevent the others from running.
	Process(ctx context.Context, doc *models.Document) error
}

// Options configures the monitor.
type Options struct {
	// SettleDelay is the wait before the first size check of a newly
	// observed file.
	SettleDelay time.Duration
	// SettleRecheck is the gap between the two size checks.
	SettleRecheck time.Duration
	// MaxSettleRetries bounds how often a still-growing file is
	// rechecked before it is routed to failed.
	MaxSettleRetries int
	// Workers is the size of the processing worker pool.
	Workers int
	// RescanInterval is the polling fallback for filesystems where
	// fsnotify is unreliable. Zero disables rescanning.
	RescanInterval time.Duration
}

// DefaultOptions returns Options with production defaults.
func DefaultOptions() *Options {
	return &Options{
		SettleDelay:      2 * time.Second,
		SettleRecheck:    500 * time.Millisecond,
		MaxSettleRetries: 5,
		Workers:          4,
		RescanInterval:   30 * time.Second,
	}
}

// Monitor watches the incoming directory and feeds the pipeline.
type Monitor struct {
	fsm  *filestore.Manager
	opts *Options

	watcher    *fsnotify.Watcher
	processors []Processor

	// inflight prevents re-entrant processing of the same path. A path
	// is evicted on processor error so a later event can retry it.
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	jobs chan string
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	started   time.Time
	processed atomic.Int64
	errored   atomic.Int64
}

// New creates a monitor over the filestore's incoming directory.
func New(fsm *filestore.Manager, opts *Options) (*Monitor, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Monitor{
		fsm:      fsm,
		opts:     opts,
		watcher:  watcher,
		inflight: make(map[string]struct{}),
		jobs:     make(chan string, opts.Workers*2),
		done:     make(chan struct{}),
	}, nil
}

// AddProcessor registers a downstream processor. Must be called before
// Start.
func (m *Monitor) AddProcessor(p Processor) {
	m.processors = append(m.processors, p)
}

// Start begins watching. Pre-existing files in the incoming directory are
// fed through the same pipeline before live events take over. Start
// returns immediately; processing runs until Stop or context cancellation.
func (m *Monitor) Start(ctx context.Context) error {
	incoming := m.fsm.IncomingDir()
	if err := m.watcher.Add(incoming); err != nil {
		return fmt.Errorf("watch incoming directory: %w", err)
	}
	m.started = time.Now()

	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}

	m.wg.Add(1)
	go m.run(ctx)

	// Startup scan: files that arrived before the watcher did.
	m.scan(incoming)

	log.Printf("started monitoring directory: %s", incoming)
	return nil
}

// Stop stops the monitor and waits for in-flight work to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.watcher.Close()
	m.wg.Wait()
	log.Printf("stopped file monitoring")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	var rescan <-chan time.Time
	if m.opts.RescanInterval > 0 {
		ticker := time.NewTicker(m.opts.RescanInterval)
		defer ticker.Stop()
		rescan = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				m.enqueue(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		case <-rescan:
			m.scan(m.fsm.IncomingDir())
		}
	}
}

// scan enqueues every report file currently in the directory.
func (m *Monitor) scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("scan %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			m.enqueue(filepath.Join(dir, e.Name()))
		}
	}
}

// enqueue queues a path for processing unless it is filtered out or
// already in flight.
func (m *Monitor) enqueue(path string) {
	if !isReportFile(path) {
		return
	}

	m.inflightMu.Lock()
	if _, ok := m.inflight[path]; ok {
		m.inflightMu.Unlock()
		return
	}
	m.inflight[path] = struct{}{}
	m.inflightMu.Unlock()

	metrics.FilesDiscoveredTotal.Inc()
	metrics.QueueDepth.Inc()

	select {
	case m.jobs <- path:
	case <-m.done:
		m.evict(path)
		metrics.QueueDepth.Dec()
	}
}

func (m *Monitor) evict(path string) {
	m.inflightMu.Lock()
	delete(m.inflight, path)
	m.inflightMu.Unlock()
}

func (m *Monitor) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case path := <-m.jobs:
			m.handle(ctx, path)
			metrics.QueueDepth.Dec()
		}
	}
}

// handle drives one file through settle, validate, move, and dispatch.
func (m *Monitor) handle(ctx context.Context, path string) {
	switch m.settle(ctx, path) {
	case settleVanished:
		m.evict(path)
		return
	case settleUnstable:
		m.fail(path, fmt.Sprintf("file still being written after %d checks", m.opts.MaxSettleRetries))
		return
	case settleAborted:
		m.evict(path)
		return
	}

	doc := &models.Document{
		Filename:   filepath.Base(path),
		Path:       path,
		ReceivedAt: time.Now().UTC(),
		State:      models.StateValidating,
	}

	v := m.fsm.Validate(path)
	if !v.Valid {
		m.fail(path, "file validation failed: "+strings.Join(v.Errors, ", "))
		return
	}
	for _, w := range v.Warnings {
		log.Printf("%s: %s", doc.Filename, w)
	}
	doc.SizeBytes = v.Info.SizeBytes
	doc.ContentHash = v.Info.Hash
	doc.Duplicate = v.Duplicate

	newPath, err := m.fsm.MoveToProcessing(path)
	if err != nil {
		log.Printf("%s: %v", doc.Filename, err)
		m.errored.Add(1)
		m.evict(path)
		return
	}
	doc.Path = newPath
	doc.State = models.StateProcessing

	start := time.Now()
	failed := false
	for _, p := range m.processors {
		if err := m.dispatch(ctx, p, doc); err != nil {
			log.Printf("processor %s failed on %s: %v", p.Name(), doc.Filename, err)
			failed = true
		}
	}

	if failed {
		m.errored.Add(1)
		// Allow a retry if the same path shows up again.
		m.evict(path)
		return
	}

	m.processed.Add(1)
	log.Printf("successfully processed %s in %v", doc.Filename, time.Since(start).Round(time.Millisecond))
}

// dispatch runs one processor with panic isolation.
func (m *Monitor) dispatch(ctx context.Context, p Processor, doc *models.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Process(ctx, doc)
}

func (m *Monitor) fail(path, reason string) {
	log.Printf("%s: %s", filepath.Base(path), reason)
	if _, err := m.fsm.MoveToFailed(path, reason); err != nil {
		log.Printf("move failed file %s: %v", filepath.Base(path), err)
	}
	metrics.DocumentsFailedTotal.WithLabelValues("validation").Inc()
	m.errored.Add(1)
	// The path is gone from incoming; keep the inflight entry out so a
	// resubmission under the same name is processed fresh.
	m.evict(path)
}

type settleOutcome int

const (
	settleStable settleOutcome = iota
	settleVanished
	settleUnstable
	settleAborted
)

// settle waits for the file to stop growing: an initial delay, then two
// size checks. A size change means the writer is still active, so the
// wait repeats up to MaxSettleRetries.
func (m *Monitor) settle(ctx context.Context, path string) settleOutcome {
	for attempt := 0; attempt <= m.opts.MaxSettleRetries; attempt++ {
		if !m.sleep(ctx, m.opts.SettleDelay) {
			return settleAborted
		}

		first, err := os.Stat(path)
		if err != nil {
			return settleVanished
		}

		if !m.sleep(ctx, m.opts.SettleRecheck) {
			return settleAborted
		}

		second, err := os.Stat(path)
		if err != nil {
			return settleVanished
		}

		if first.Size() == second.Size() {
			return settleStable
		}
		log.Printf("file still being written: %s", filepath.Base(path))
	}
	return settleUnstable
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}

// isReportFile filters watch events: report PDFs only, skipping hidden
// and editor temp files.
func isReportFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Stats reports monitor throughput counters.
type Stats struct {
	Watching       bool    `json:"is_monitoring"`
	WatchDirectory string  `json:"watch_directory"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	FilesProcessed int64   `json:"files_processed"`
	Errors         int64   `json:"processing_errors"`
	SuccessRate    float64 `json:"success_rate"`
	FilesPerHour   float64 `json:"files_per_hour"`
}

// Stats returns current monitor statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	s := Stats{
		Watching:       !closed && !m.started.IsZero(),
		WatchDirectory: m.fsm.IncomingDir(),
		FilesProcessed: m.processed.Load(),
		Errors:         m.errored.Load(),
	}
	if !m.started.IsZero() {
		uptime := time.Since(m.started)
		s.UptimeSeconds = uptime.Seconds()
		if hours := uptime.Hours(); hours > 0 {
			s.FilesPerHour = float64(s.FilesProcessed) / hours
		}
	}
	if total := s.FilesProcessed + s.Errors; total > 0 {
		s.SuccessRate = float64(s.FilesProcessed) / float64(total) * 100
	}
	return s
}
