package models

import "time"

// DocumentState tracks a document's position in the ingestion lifecycle.
type DocumentState string

const (
	StateDiscovered DocumentState = "discovered"
	StateSettling   DocumentState = "settling"
	StateValidating DocumentState = "validating"
	StateProcessing DocumentState = "processing"
	StateProcessed  DocumentState = "processed"
	StateFailed     DocumentState = "failed"
)

// Document is one submitted radiology report file. Path is updated as the
// file moves through the directory taxonomy; ContentHash identifies the
// document regardless of location or name.
type Document struct {
	Filename    string        `json:"filename"`
	Path        string        `json:"path"`
	SizeBytes   int64         `json:"size_bytes"`
	ContentHash string        `json:"content_hash"`
	ReceivedAt  time.Time     `json:"received_at"`
	State       DocumentState `json:"state"`
	Duplicate   bool          `json:"duplicate,omitempty"`
}
