// Package search provides an in-memory index over processed documents
// and alerts. The corpus is small (one entry per report), so the index
// scans entries on every query instead of maintaining posting lists.
package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// EntryKind distinguishes indexed record types.
type EntryKind string

const (
	KindAlert    EntryKind = "alert"
	KindDocument EntryKind = "document"
)

// Entry is one searchable record.
type Entry struct {
	Kind      EntryKind         `json:"kind"`
	ID        string            `json:"id"`
	PatientID string            `json:"patient_id,omitempty"`
	Level     models.AlertLevel `json:"alert_level,omitempty"`
	Snippet   string            `json:"snippet"`
	CreatedAt time.Time         `json:"created_at"`

	// text is the lowercased haystack queries match against.
	text string
}

// Result is an entry with its relevance score.
type Result struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Index is a concurrency-safe in-memory search index.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// New creates an index that retains at most max entries; the oldest are
// dropped first. max <= 0 means unbounded.
func New(max int) *Index {
	return &Index{max: max}
}

// IndexAlert adds an alert to the index.
func (ix *Index) IndexAlert(alert *models.Alert) {
	parts := []string{
		alert.ID, alert.Document, alert.PatientID, string(alert.Level),
		strings.Join(alert.Conditions, " "), alert.FindingsSummary,
	}
	ix.add(Entry{
		Kind:      KindAlert,
		ID:        alert.ID,
		PatientID: alert.PatientID,
		Level:     alert.Level,
		Snippet:   snippet(alert.FindingsSummary),
		CreatedAt: alert.CreatedAt,
		text:      strings.ToLower(strings.Join(parts, " ")),
	})
}

// IndexDocument adds a processed document and its extracted fields.
func (ix *Index) IndexDocument(doc *models.Document, fields models.ExtractionFields) {
	parts := []string{
		doc.Filename, fields.PatientID, fields.StudyType, fields.StudyDate,
		fields.Findings, fields.Impression, fields.ClinicalHistory,
	}
	ix.add(Entry{
		Kind:      KindDocument,
		ID:        doc.Filename,
		PatientID: fields.PatientID,
		Snippet:   snippet(fields.Impression),
		CreatedAt: doc.ReceivedAt,
		text:      strings.ToLower(strings.Join(parts, " ")),
	})
}

func (ix *Index) add(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = append(ix.entries, e)
	if ix.max > 0 && len(ix.entries) > ix.max {
		ix.entries = ix.entries[len(ix.entries)-ix.max:]
	}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns entries matching the query, best first. The score is in
// [0,1]: the fraction of matched query tokens, with an exact-phrase match
// counted as one extra token. Ties break toward newer entries.
func (ix *Index) Search(query string, limit int) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	tokens := strings.Fields(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []Result
	for _, e := range ix.entries {
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(e.text, tok) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		// The phrase match counts as one extra unit folded into the
		// normalization, so scores stay in [0,1] and an exact phrase
		// still outranks the same tokens scattered through the text.
		units, total := float64(matched), float64(len(tokens))
		if len(tokens) > 1 {
			total++
			if strings.Contains(e.text, query) {
				units++
			}
		}
		score := units / total
		results = append(results, Result{Entry: e, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.CreatedAt.After(results[j].Entry.CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchPatient returns all entries for an exact patient ID, newest
// first.
func (ix *Index) SearchPatient(patientID string, limit int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []Result
	for _, e := range ix.entries {
		if e.PatientID == patientID {
			results = append(results, Result{Entry: e, Score: 1})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Entry.CreatedAt.After(results[j].Entry.CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	const max = 160
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
