package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kabu-agent/analysis"
)

// LoadScoringWeights reads a YAML scoring weight table, layered over the
// built-in defaults so a partial file only overrides what it names.
//
// Example:
//
//	technical_weight: 0.6
//	fundamental_weight: 0.4
//	rules:
//	  rsi: 1.5
//	  per: 0.8
func LoadScoringWeights(path string) (analysis.ScoringConfig, error) {
	cfg := analysis.DefaultScoringConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
