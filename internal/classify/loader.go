package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDictionary loads a condition dictionary from a YAML file. Tier lists
// left empty in the file fall back to the built-in tables, so a site can
// override just the weights or just the recommendations.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conditions file: %w", err)
	}

	var dict Dictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse conditions file: %w", err)
	}

	defaults := DefaultDictionary()
	if len(dict.Red) == 0 {
		dict.Red = defaults.Red
	}
	if len(dict.Orange) == 0 {
		dict.Orange = defaults.Orange
	}
	if len(dict.Yellow) == 0 {
		dict.Yellow = defaults.Yellow
	}
	if dict.Weights == nil {
		dict.Weights = defaults.Weights
	}
	if len(dict.Recommendations) == 0 {
		dict.Recommendations = defaults.Recommendations
	}

	if err := dict.validate(); err != nil {
		return nil, fmt.Errorf("invalid conditions file %s: %w", path, err)
	}
	return &dict, nil
}

func (d *Dictionary) validate() error {
	for _, tier := range [][]string{d.Red, d.Orange, d.Yellow} {
		for _, cond := range tier {
			if strings.TrimSpace(cond) == "" {
				return fmt.Errorf("empty condition entry")
			}
		}
	}
	for i, rule := range d.Recommendations {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("recommendation rule %d has no keywords", i)
		}
		if len(rule.Actions) == 0 {
			return fmt.Errorf("recommendation rule %d has no actions", i)
		}
	}
	return nil
}
