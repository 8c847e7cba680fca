// Package filestore owns the on-disk directory taxonomy for radiology
// report processing: validation, duplicate detection, collision-safe moves,
// failure sidecars, and the persisted processing metadata.
package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Directory names under the base data directory.
const (
	DirIncoming   = "incoming"
	DirProcessing = "processing"
	DirProcessed  = "processed"
	DirAlerts     = "alerts"
	DirArchive    = "archive"
	DirFailed     = "failed"
	DirMetadata   = "metadata"
)

// File validation bounds. Size is inclusive-exclusive: exactly 1KB is
// accepted, exactly 50MB is not.
const (
	MinFileSize = 1024
	MaxFileSize = 50 * 1024 * 1024
)

// pdfMagic is the header every accepted document must start with.
var pdfMagic = []byte("%PDF")

// Manager manages the filesystem structure for report processing. All
// operations are best-effort and log-and-continue: data movement and
// metadata bookkeeping are independent failure domains.
type Manager struct {
	base     string
	registry *Registry

	// now is replaceable for tests (date-partitioned archive paths).
	now func() time.Time
}

// New creates a Manager rooted at base and ensures the directory layout
// exists, including the per-tier alert directories and today's
// date-partitioned processed directory.
func New(base string) (*Manager, error) {
	m := &Manager{
		base:     base,
		registry: NewRegistry(filepath.Join(base, DirMetadata, "processed_hashes.json")),
		now:      time.Now,
	}
	if err := m.ensureLayout(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) ensureLayout() error {
	for _, dir := range []string{
		DirIncoming, DirProcessing, DirProcessed, DirAlerts, DirArchive, DirFailed, DirMetadata,
	} {
		if err := os.MkdirAll(filepath.Join(m.base, dir), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	for _, level := range models.AlertLevels {
		if err := os.MkdirAll(filepath.Join(m.base, DirAlerts, level.Dir()), 0o755); err != nil {
			return fmt.Errorf("create alerts/%s directory: %w", level.Dir(), err)
		}
	}
	today := filepath.Join(m.base, DirProcessed, m.now().Format("2006/01/02"))
	if err := os.MkdirAll(today, 0o755); err != nil {
		return fmt.Errorf("create processed date directory: %w", err)
	}
	return nil
}

// Base returns the base data directory.
func (m *Manager) Base() string { return m.base }

// IncomingDir returns the directory where new reports arrive.
func (m *Manager) IncomingDir() string { return filepath.Join(m.base, DirIncoming) }

// ProcessingDir returns the directory for files currently being processed.
func (m *Manager) ProcessingDir() string { return filepath.Join(m.base, DirProcessing) }

// FailedDir returns the directory for files that failed processing.
func (m *Manager) FailedDir() string { return filepath.Join(m.base, DirFailed) }

// Registry returns the content-hash registry.
func (m *Manager) Registry() *Registry { return m.registry }

// FileInfo describes a validated file.
type FileInfo struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	SizeMB    float64   `json:"size_mb"`
	Hash      string    `json:"file_hash,omitempty"`
	ModTime   time.Time `json:"modified_time"`
}

// ValidationResult is the outcome of validating an incoming file.
// Duplicates are a warning, not an error: the file still validates, but
// is flagged so the pipeline can skip reprocessing.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	Duplicate bool     `json:"is_duplicate"`
	Info      FileInfo `json:"file_info"`
}

// Validate checks an incoming file: existence, size bounds, extension,
// PDF magic bytes, and content-hash duplicate detection.
func (m *Manager) Validate(path string) ValidationResult {
	var res ValidationResult

	info, err := os.Stat(path)
	if err != nil {
		res.Errors = append(res.Errors, "file does not exist")
		return res
	}

	res.Info = FileInfo{
		Filename:  filepath.Base(path),
		SizeBytes: info.Size(),
		SizeMB:    float64(info.Size()) / (1024 * 1024),
		ModTime:   info.ModTime(),
	}

	if info.Size() < MinFileSize {
		res.Errors = append(res.Errors, "file too small (less than 1KB)")
	} else if info.Size() >= MaxFileSize {
		res.Errors = append(res.Errors, "file too large (more than 50MB)")
	}

	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		res.Errors = append(res.Errors, "file must be PDF format")
	}

	if err := checkPDFHeader(path); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	hash, err := HashFile(path)
	if err != nil {
		log.Printf("hash %s: %v", path, err)
	} else {
		res.Info.Hash = hash
		if name, ok := m.registry.Lookup(hash); ok {
			res.Duplicate = true
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("file appears to be a duplicate (matches %s)", name))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func checkPDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %v", err)
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return fmt.Errorf("cannot read file: %v", err)
	}
	if !bytes.HasPrefix(header[:n], pdfMagic) {
		return fmt.Errorf("file does not appear to be a valid PDF")
	}
	return nil
}

// HashFile computes the hex SHA-256 digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MoveToProcessing moves a file from incoming to the processing directory,
// renaming on collision. Never overwrites an existing file.
func (m *Manager) MoveToProcessing(path string) (string, error) {
	dest := collisionFree(m.ProcessingDir(), filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", fmt.Errorf("move to processing: %w", err)
	}
	log.Printf("moved %s to processing: %s", filepath.Base(path), filepath.Base(dest))
	return dest, nil
}

// MoveToProcessed moves a file into the date-partitioned processed
// directory. Files in the top two tiers are additionally copied into the
// matching alerts subdirectory, preserving the dated archive copy.
func (m *Manager) MoveToProcessed(path string, level models.AlertLevel) (string, error) {
	dayDir := filepath.Join(m.base, DirProcessed, m.now().Format("2006/01/02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("create processed date directory: %w", err)
	}

	dest := collisionFree(dayDir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", fmt.Errorf("move to processed: %w", err)
	}

	if level.Critical() {
		alertDest := collisionFree(filepath.Join(m.base, DirAlerts, level.Dir()), filepath.Base(path))
		if err := copyFile(dest, alertDest); err != nil {
			// The archive move already succeeded; the alert copy is
			// best-effort bookkeeping.
			log.Printf("copy to alerts/%s: %v", level.Dir(), err)
		} else {
			log.Printf("copied critical file to alerts/%s: %s", level.Dir(), filepath.Base(alertDest))
		}
	}

	log.Printf("moved %s to processed: %s", filepath.Base(path), dest)
	return dest, nil
}

// errorSidecar is the structured record written alongside a failed file.
type errorSidecar struct {
	OriginalFile string `json:"original_file"`
	ErrorReason  string `json:"error_reason"`
	Timestamp    string `json:"timestamp"`
	FileSize     int64  `json:"file_size"`
}

// MoveToFailed moves a file to the failed directory and writes a JSON
// error sidecar next to it (<name>.pdf.error).
func (m *Manager) MoveToFailed(path, reason string) (string, error) {
	dest := collisionFree(m.FailedDir(), filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", fmt.Errorf("move to failed: %w", err)
	}

	var size int64
	if info, err := os.Stat(dest); err == nil {
		size = info.Size()
	}
	sidecar := errorSidecar{
		OriginalFile: filepath.Base(path),
		ErrorReason:  reason,
		Timestamp:    m.now().UTC().Format(time.RFC3339),
		FileSize:     size,
	}
	if err := writeJSON(dest+".error", sidecar); err != nil {
		log.Printf("write error sidecar for %s: %v", filepath.Base(dest), err)
	}

	log.Printf("moved %s to failed: %s", filepath.Base(path), reason)
	return dest, nil
}

// ProcessingRecord summarizes how a document was processed.
type ProcessingRecord struct {
	Status     string   `json:"status"`
	AlertLevel string   `json:"alert_level"`
	AlertID    string   `json:"alert_id,omitempty"`
	Conditions []string `json:"matched_conditions,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// fileMetadata is the persisted per-document processing record.
type fileMetadata struct {
	Filename            string           `json:"filename"`
	FileHash            string           `json:"file_hash"`
	FileSize            int64            `json:"file_size"`
	ProcessingTimestamp string           `json:"processing_timestamp"`
	ProcessingResult    ProcessingRecord `json:"processing_result"`
}

// RecordProcessedFile appends the file's content hash to the persisted
// registry and writes the per-file metadata record. Safe to call
// repeatedly for the same document; last write wins for a given hash.
func (m *Manager) RecordProcessedFile(path string, result ProcessingRecord) error {
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	name := filepath.Base(path)
	if err := m.registry.Record(hash, name); err != nil {
		return fmt.Errorf("update hash registry: %w", err)
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	meta := fileMetadata{
		Filename:            name,
		FileHash:            hash,
		FileSize:            size,
		ProcessingTimestamp: m.now().UTC().Format(time.RFC3339),
		ProcessingResult:    result,
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	metaPath := filepath.Join(m.base, DirMetadata, stem+"_metadata.json")
	if err := writeJSON(metaPath, meta); err != nil {
		return fmt.Errorf("write metadata record: %w", err)
	}
	return nil
}

// Stats reports filesystem processing statistics, computed by listing
// directory contents on demand.
type Stats struct {
	Directories   map[string]int `json:"directories"`
	TotalFiles    int            `json:"total_files"`
	QueueDepth    int            `json:"processing_queue_size"`
	AlertsByLevel map[string]int `json:"alerts_by_level"`
	FailedFiles   int            `json:"failed_files"`
}

// Statistics counts files per directory, the processing queue depth, and
// alerts per tier.
func (m *Manager) Statistics() Stats {
	stats := Stats{
		Directories:   make(map[string]int),
		AlertsByLevel: make(map[string]int),
	}

	for _, dir := range []string{
		DirIncoming, DirProcessing, DirProcessed, DirAlerts, DirArchive, DirFailed, DirMetadata,
	} {
		n := countFiles(filepath.Join(m.base, dir))
		stats.Directories[dir] = n
		stats.TotalFiles += n
	}

	stats.QueueDepth = countPDFs(m.ProcessingDir())
	for _, level := range models.AlertLevels {
		stats.AlertsByLevel[level.Dir()] = countPDFs(filepath.Join(m.base, DirAlerts, level.Dir()))
	}
	stats.FailedFiles = countPDFs(m.FailedDir())
	return stats
}

// CleanupOldFiles removes files in processed/, archive/, and failed/ whose
// modification time is older than the retention cutoff, then prunes any
// directories left empty. Best-effort: per-file errors are logged and
// skipped. Returns the number of files removed.
func (m *Manager) CleanupOldFiles(retentionDays int) (int, error) {
	cutoff := m.now().AddDate(0, 0, -retentionDays)
	cleaned := 0

	roots := []string{
		filepath.Join(m.base, DirProcessed),
		filepath.Join(m.base, DirArchive),
		filepath.Join(m.base, DirFailed),
	}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(path); err != nil {
					log.Printf("cleanup %s: %v", path, err)
					return nil
				}
				cleaned++
			}
			return nil
		})
		if err != nil {
			log.Printf("cleanup walk %s: %v", root, err)
		}
		pruneEmptyDirs(root)
	}

	log.Printf("cleanup completed, removed %d old files", cleaned)
	return cleaned, nil
}

// pruneEmptyDirs removes empty directories under root, deepest first,
// leaving root itself in place.
func pruneEmptyDirs(root string) {
	var dirs []string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			os.Remove(dir)
		}
	}
}

// collisionFree returns a path in dir for name, appending a numeric suffix
// until the path does not exist.
func collisionFree(dir, name string) string {
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
	}
}

// moveFile renames src to dest, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func countPDFs(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			n++
		}
	}
	return n
}
