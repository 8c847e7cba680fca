package classify

import (
	"reflect"
	"testing"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

func TestClassify(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name       string
		findings   string
		impression string
		wantLevel  models.AlertLevel
		wantConds  []string
		wantSev    float64
	}{
		{
			name:      "unmatched text is green",
			findings:  "Lungs are clear. No acute cardiopulmonary abnormality.",
			wantLevel: models.AlertGreen,
			wantConds: []string{},
		},
		{
			name:      "empty text is green",
			wantLevel: models.AlertGreen,
			wantConds: []string{},
		},
		{
			name:      "single red condition",
			findings:  "Filling defect consistent with pulmonary embolism in the right main pulmonary artery.",
			wantLevel: models.AlertRed,
			wantConds: []string{"pulmonary embolism"},
			wantSev:   9.0,
		},
		{
			name:       "red short-circuits orange",
			findings:   "Right lower lobe pneumonia.",
			impression: "Also noted: segmental pulmonary embolism.",
			wantLevel:  models.AlertRed,
			wantConds:  []string{"pulmonary embolism"},
			wantSev:    9.0,
		},
		{
			name:      "orange condition",
			findings:  "Consolidation in the left lower lobe compatible with pneumonia.",
			wantLevel: models.AlertOrange,
			wantConds: []string{"pneumonia", "consolidation"},
			wantSev:   6.0, // consolidation carries the tier default, higher than pneumonia's override
		},
		{
			name:      "yellow condition",
			findings:  "Small renal cyst, likely benign.",
			wantLevel: models.AlertYellow,
			wantConds: []string{"cyst"},
			wantSev:   3.0,
		},
		{
			name:      "severity is max weight not sum",
			findings:  "Acute aortic dissection with associated hemorrhage.",
			wantLevel: models.AlertRed,
			wantConds: []string{"aortic dissection", "hemorrhage"},
			wantSev:   10.0,
		},
		{
			name:      "matching is case insensitive",
			findings:  "INTRACRANIAL BLEED identified in the left frontal lobe.",
			wantLevel: models.AlertRed,
			wantConds: []string{"intracranial bleed"},
			wantSev:   9.5,
		},
		{
			name:      "substring matching crosses word boundaries",
			findings:  "Large paraspinal massive lesion.",
			wantLevel: models.AlertOrange,
			wantConds: []string{"mass"},
			wantSev:   5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.findings, tt.impression)
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", got.Level, tt.wantLevel)
			}
			if !reflect.DeepEqual(got.Conditions, tt.wantConds) {
				t.Errorf("Conditions = %v, want %v", got.Conditions, tt.wantConds)
			}
			if got.Severity != tt.wantSev {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.wantSev)
			}
		})
	}
}

func TestClassifyConfidence(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		findings string
		want     float64
	}{
		{"one match", "pulmonary embolism", 0.3},
		{"two matches", "pulmonary embolism and aortic dissection", 0.6},
		{"capped at one", "pulmonary embolism aortic dissection hemorrhage tension pneumothorax", 1.0},
		{"no match is zero", "clear lungs", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.findings, "")
			// Avoid float accumulation surprises.
			if diff := got.Confidence - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.want)
			}
		})
	}
}

func TestClassifyCustomDictionary(t *testing.T) {
	dict := &Dictionary{
		Red:     []string{"custom critical"},
		Orange:  []string{"custom urgent"},
		Weights: map[string]float64{"custom critical": 7.5},
	}
	c := New(dict)

	got := c.Classify("finding: custom critical", "")
	if got.Level != models.AlertRed {
		t.Fatalf("Level = %s, want RED", got.Level)
	}
	if got.Severity != 7.5 {
		t.Errorf("Severity = %v, want 7.5", got.Severity)
	}

	got = c.Classify("finding: custom urgent", "")
	if got.Level != models.AlertOrange {
		t.Fatalf("Level = %s, want ORANGE", got.Level)
	}
	if got.Severity != defaultOrangeWeight {
		t.Errorf("Severity = %v, want tier default %v", got.Severity, defaultOrangeWeight)
	}
}
