package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Registry persists the content-hash to filename mapping used for
// duplicate detection. It is the single writer for its file: updates are
// load-merge-persist under a mutex so two documents completing
// concurrently cannot lose each other's entries, and the file is replaced
// atomically via rename.
type Registry struct {
	mu   sync.Mutex
	path string
}

// NewRegistry creates a registry backed by the given JSON file. The file
// is created on first Record.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Load reads the full hash to filename map. A missing file is an empty
// registry, not an error.
func (r *Registry) Load() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hash registry: %w", err)
	}

	hashes := make(map[string]string)
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("parse hash registry: %w", err)
	}
	return hashes, nil
}

// Lookup returns the filename recorded for a hash.
func (r *Registry) Lookup(hash string) (string, bool) {
	hashes, err := r.Load()
	if err != nil {
		return "", false
	}
	name, ok := hashes[hash]
	return name, ok
}

// Contains reports whether the hash has been recorded.
func (r *Registry) Contains(hash string) bool {
	_, ok := r.Lookup(hash)
	return ok
}

// Record inserts or replaces the filename for a hash. Idempotent: calling
// twice for the same hash leaves exactly one entry, last write wins.
func (r *Registry) Record(hash, filename string) error {
	if hash == "" {
		return fmt.Errorf("empty hash")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hashes, err := r.load()
	if err != nil {
		return err
	}
	hashes[hash] = filename
	return r.persist(hashes)
}

// persist writes the map through a temp file and rename so a crash never
// leaves a truncated registry.
func (r *Registry) persist(hashes map[string]string) error {
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode hash registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write hash registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace hash registry: %w", err)
	}
	return nil
}

// Len returns the number of recorded hashes.
func (r *Registry) Len() int {
	hashes, err := r.Load()
	if err != nil {
		return 0
	}
	return len(hashes)
}
