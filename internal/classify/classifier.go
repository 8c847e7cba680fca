// Package classify maps extracted radiology finding text to an ordered
// severity tier using a static condition dictionary.
package classify

import (
	"strings"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Result is the outcome of classifying one report's text.
type Result struct {
	Level      models.AlertLevel `json:"alert_level"`
	Conditions []string          `json:"matched_conditions"`
	Severity   float64           `json:"severity_score"`
	Confidence float64           `json:"confidence"`
}

// Classifier scans finding text for known conditions. Matching is plain
// substring containment, not tokenized: partial-word overlap is an accepted
// false-positive source in exchange for deterministic behavior.
type Classifier struct {
	dict *Dictionary
}

// New creates a Classifier. A nil dictionary selects the built-in tables.
func New(dict *Dictionary) *Classifier {
	if dict == nil {
		dict = DefaultDictionary()
	}
	return &Classifier{dict: dict}
}

// Classify scans the findings and impression text and returns the severity
// tier, the matched conditions, and the severity score.
//
// Tiers are checked in strict priority order with short-circuit: if any
// RED condition matches, lower tiers are never scanned and their conditions
// are never reported. A document is tagged with exactly one tier; text
// matching nothing is GREEN.
func (c *Classifier) Classify(findings, impression string) Result {
	text := strings.ToLower(findings + " " + impression)

	tiers := []struct {
		level      models.AlertLevel
		conditions []string
		weight     float64
	}{
		{models.AlertRed, c.dict.Red, defaultRedWeight},
		{models.AlertOrange, c.dict.Orange, defaultOrangeWeight},
		{models.AlertYellow, c.dict.Yellow, defaultYellowWeight},
	}

	for _, tier := range tiers {
		matched := matchConditions(text, tier.conditions)
		if len(matched) == 0 {
			continue
		}

		// Severity reflects the worst single finding, not the sum.
		var severity float64
		for _, cond := range matched {
			if w := c.dict.Weight(cond, tier.weight); w > severity {
				severity = w
			}
		}

		return Result{
			Level:      tier.level,
			Conditions: matched,
			Severity:   severity,
			Confidence: confidence(len(matched)),
		}
	}

	return Result{Level: models.AlertGreen, Conditions: []string{}}
}

// matchConditions returns the conditions contained in text, in dictionary
// order. Text must already be lowercased.
func matchConditions(text string, conditions []string) []string {
	var matched []string
	for _, cond := range conditions {
		if cond == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(cond)) {
			matched = append(matched, cond)
		}
	}
	return matched
}

// confidence grows with the number of matched conditions, capped at 1.0.
func confidence(matches int) float64 {
	c := float64(matches) * 0.3
	if c > 1.0 {
		return 1.0
	}
	return c
}
