package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestRegistryMissingFile(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "metadata", "hashes.json"))

	hashes, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hashes) != 0 {
		t.Errorf("len = %d, want empty", len(hashes))
	}
	if r.Contains("deadbeef") {
		t.Error("Contains on empty registry")
	}
}

func TestRegistryRecordLookup(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "hashes.json"))

	if err := r.Record("abc123", "scan_P100.pdf"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	name, ok := r.Lookup("abc123")
	if !ok || name != "scan_P100.pdf" {
		t.Errorf("Lookup = %q, %v; want scan_P100.pdf, true", name, ok)
	}
	if r.Contains("other") {
		t.Error("Contains unrecorded hash")
	}
}

func TestRegistryIdempotent(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "hashes.json"))

	if err := r.Record("abc123", "first.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := r.Record("abc123", "second.pdf"); err != nil {
		t.Fatal(err)
	}

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if name, _ := r.Lookup("abc123"); name != "second.pdf" {
		t.Errorf("last write should win, got %q", name)
	}
}

func TestRegistryEmptyHash(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "hashes.json"))
	if err := r.Record("", "x.pdf"); err == nil {
		t.Error("expected error for empty hash")
	}
}

func TestRegistryConcurrentRecord(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "hashes.json"))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash := fmt.Sprintf("hash-%02d", i)
			if err := r.Record(hash, fmt.Sprintf("file-%02d.pdf", i)); err != nil {
				t.Errorf("Record %s: %v", hash, err)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != n {
		t.Errorf("Len = %d, want %d (lost updates)", r.Len(), n)
	}
}

func TestRegistryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(path)
	if _, err := r.Load(); err == nil {
		t.Error("expected parse error for corrupt registry")
	}
	if err := r.Record("abc", "x.pdf"); err == nil {
		t.Error("Record should surface load failure")
	}
}
