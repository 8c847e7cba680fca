// Package pipeline contains the document processor that runs each
// validated report through extraction, classification, alerting, and
// archival.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/classify"
	"github.com/ishan121028/RadiologyAI/internal/escalate"
	"github.com/ishan121028/RadiologyAI/internal/extract"
	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/metrics"
	"github.com/ishan121028/RadiologyAI/internal/models"
	"github.com/ishan121028/RadiologyAI/internal/stats"
)

// AlertStore persists generated alerts.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// Indexer receives processed documents and alerts for search.
type Indexer interface {
	IndexAlert(alert *models.Alert)
	IndexDocument(doc *models.Document, fields models.ExtractionFields)
}

// DocumentProcessor is the main processing stage: it extracts report
// content, classifies the findings, raises alerts for critical
// conditions, and archives the file.
type DocumentProcessor struct {
	fsm        *filestore.Manager
	extractor  extract.Extractor
	classifier *classify.Classifier
	engine     *escalate.Engine
	store      AlertStore
	index      Indexer
	agg        *stats.Aggregator

	// ExtractTimeout bounds a single extraction call.
	ExtractTimeout time.Duration
}

// NewDocumentProcessor wires the processing stage. store and index may be
// nil, in which case persistence and search indexing are skipped.
func NewDocumentProcessor(fsm *filestore.Manager, ex extract.Extractor, cl *classify.Classifier, eng *escalate.Engine, store AlertStore, index Indexer, agg *stats.Aggregator) *DocumentProcessor {
	return &DocumentProcessor{
		fsm:            fsm,
		extractor:      ex,
		classifier:     cl,
		engine:         eng,
		store:          store,
		index:          index,
		agg:            agg,
		ExtractTimeout: 90 * time.Second,
	}
}

// Name implements monitor.Processor.
func (p *DocumentProcessor) Name() string { return "document-processor" }

// Process runs the full pipeline on one document. On failure the file is
// moved to the failed directory with an error sidecar; the returned error
// lets the monitor count it.
func (p *DocumentProcessor) Process(ctx context.Context, doc *models.Document) error {
	start := time.Now()

	if doc.Duplicate {
		return p.archiveDuplicate(doc)
	}

	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return p.fail(doc, fmt.Errorf("read document: %w", err))
	}

	result, err := p.runExtraction(ctx, content, doc.Filename)
	if err != nil {
		return p.fail(doc, fmt.Errorf("extraction: %w", err))
	}
	if !result.Success {
		return p.fail(doc, fmt.Errorf("extraction unsuccessful: %s", result.Error))
	}

	cls := p.classifier.Classify(result.Fields.Findings, result.Fields.Impression)
	log.Printf("classified %s as %s (severity %.1f, %d conditions)",
		doc.Filename, cls.Level, cls.Severity, len(cls.Conditions))

	record := filestore.ProcessingRecord{
		Status:     "processed",
		AlertLevel: string(cls.Level),
		Conditions: cls.Conditions,
	}

	if alert := p.engine.CreateAlert(doc, result.Fields, cls); alert != nil {
		record.AlertID = alert.ID
		if p.store != nil {
			if err := p.store.Create(ctx, alert); err != nil {
				// The alert was already published to the live channel;
				// losing the persisted copy is logged, not fatal.
				log.Printf("persist alert %s: %v", alert.ID, err)
			}
		}
		if p.index != nil {
			p.index.IndexAlert(alert)
		}
		p.agg.RecordAlert(alert.CreatedAt)
		metrics.AlertsCreatedTotal.WithLabelValues(string(alert.Level)).Inc()
	}

	if p.index != nil {
		p.index.IndexDocument(doc, result.Fields)
	}

	newPath, err := p.fsm.MoveToProcessed(doc.Path, cls.Level)
	if err != nil {
		return p.fail(doc, fmt.Errorf("archive document: %w", err))
	}
	doc.Path = newPath
	doc.State = models.StateProcessed

	if err := p.fsm.RecordProcessedFile(newPath, record); err != nil {
		// Bookkeeping failure after a successful archive: the document
		// is safe, so log and continue.
		log.Printf("record processed file %s: %v", doc.Filename, err)
	}

	elapsed := time.Since(start)
	p.agg.RecordProcessed(cls.Level, elapsed)
	metrics.DocumentsProcessedTotal.WithLabelValues(string(cls.Level)).Inc()
	metrics.ProcessingDuration.Observe(elapsed.Seconds())
	return nil
}

// archiveDuplicate moves a previously seen document straight to the
// archive without re-extraction or alerting.
func (p *DocumentProcessor) archiveDuplicate(doc *models.Document) error {
	log.Printf("skipping duplicate document: %s", doc.Filename)
	metrics.DuplicatesTotal.Inc()

	newPath, err := p.fsm.MoveToProcessed(doc.Path, models.AlertGreen)
	if err != nil {
		return p.fail(doc, fmt.Errorf("archive duplicate: %w", err))
	}
	doc.Path = newPath
	doc.State = models.StateProcessed

	record := filestore.ProcessingRecord{
		Status:     "duplicate",
		AlertLevel: string(models.AlertGreen),
	}
	if err := p.fsm.RecordProcessedFile(newPath, record); err != nil {
		log.Printf("record duplicate file %s: %v", doc.Filename, err)
	}
	p.agg.RecordProcessed(models.AlertGreen, 0)
	return nil
}

func (p *DocumentProcessor) runExtraction(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error) {
	if p.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ExtractTimeout)
		defer cancel()
	}
	return p.extractor.Extract(ctx, content, filename)
}

// fail routes the document to the failed directory and records the error.
func (p *DocumentProcessor) fail(doc *models.Document, cause error) error {
	doc.State = models.StateFailed
	if _, err := p.fsm.MoveToFailed(doc.Path, cause.Error()); err != nil {
		log.Printf("move %s to failed: %v", doc.Filename, err)
	}
	p.agg.RecordFailed()
	metrics.DocumentsFailedTotal.WithLabelValues("processing").Inc()
	return cause
}
