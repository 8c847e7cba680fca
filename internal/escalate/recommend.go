package escalate

import (
	"strings"

	"github.com/ishan121028/RadiologyAI/internal/classify"
)

// defaultRecommendation is returned when no rule matches any condition.
const defaultRecommendation = "Standard care protocol"

// Recommend returns the recommended actions for the matched conditions.
// A rule contributes its actions when any of its keywords is contained in
// a condition. Actions are deduplicated across conditions in first-seen
// order; an empty result yields the standard care default.
func Recommend(dict *classify.Dictionary, conditions []string) []string {
	seen := make(map[string]struct{})
	var actions []string

	for _, cond := range conditions {
		lower := strings.ToLower(cond)
		for _, rule := range dict.Recommendations {
			if !ruleMatches(rule, lower) {
				continue
			}
			for _, action := range rule.Actions {
				if _, ok := seen[action]; ok {
					continue
				}
				seen[action] = struct{}{}
				actions = append(actions, action)
			}
		}
	}

	if len(actions) == 0 {
		return []string{defaultRecommendation}
	}
	return actions
}

func ruleMatches(rule classify.RecommendationRule, condition string) bool {
	for _, kw := range rule.Keywords {
		if strings.Contains(condition, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
