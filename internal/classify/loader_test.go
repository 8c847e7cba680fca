package classify

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDictFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conditions.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write dict file: %v", err)
	}
	return path
}

func TestLoadDictionary(t *testing.T) {
	path := writeDictFile(t, `
red:
  - site specific emergency
orange:
  - site specific urgent
weights:
  site specific emergency: 9.9
recommendations:
  - keywords: [site specific]
    actions: [Page the on-call radiologist]
`)

	dict, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}

	if len(dict.Red) != 1 || dict.Red[0] != "site specific emergency" {
		t.Errorf("Red = %v, want the file's single entry", dict.Red)
	}
	if w := dict.Weight("site specific emergency", defaultRedWeight); w != 9.9 {
		t.Errorf("Weight = %v, want 9.9", w)
	}
	// Yellow was omitted, so the built-in tier applies.
	if len(dict.Yellow) == 0 {
		t.Error("Yellow tier should fall back to defaults")
	}
}

func TestLoadDictionaryPartialOverride(t *testing.T) {
	// Only weights in the file: all tiers fall back to built-ins.
	path := writeDictFile(t, `
weights:
  pneumonia: 5.5
`)

	dict, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	defaults := DefaultDictionary()
	if len(dict.Red) != len(defaults.Red) {
		t.Errorf("Red tier = %d entries, want default %d", len(dict.Red), len(defaults.Red))
	}
	if w := dict.Weight("pneumonia", defaultOrangeWeight); w != 5.5 {
		t.Errorf("pneumonia weight = %v, want 5.5", w)
	}
}

func TestLoadDictionaryErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty condition entry", "red:\n  - \"  \"\n"},
		{"rule without actions", "recommendations:\n  - keywords: [x]\n"},
		{"rule without keywords", "recommendations:\n  - actions: [do a thing]\n"},
		{"malformed yaml", "red: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDictFile(t, tt.content)
			if _, err := LoadDictionary(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadDictionaryMissingFile(t *testing.T) {
	if _, err := LoadDictionary(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
