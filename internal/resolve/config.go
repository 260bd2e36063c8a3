package resolve

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the cascade thresholds. The defaults are load-bearing: the
// scenario tests pin them, so a change here must change those tests too.
type Config struct {
	Algorithm           string  `yaml:"algorithm"`
	FuzzyThreshold      float64 `yaml:"fuzzy_threshold"`
	CombinedThreshold   float64 `yaml:"combined_threshold"`
	NameWeight          float64 `yaml:"name_weight"`
	AddressWeight       float64 `yaml:"address_weight"`
	ExactNameConfidence float64 `yaml:"exact_name_confidence"`
	ReviewMargin        float64 `yaml:"review_margin"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm:           AlgorithmJaro,
		FuzzyThreshold:      0.90,
		CombinedThreshold:   0.80,
		NameWeight:          0.7,
		AddressWeight:       0.3,
		ExactNameConfidence: 0.95,
		ReviewMargin:        0.05,
	}
}

// LoadConfig reads overrides from a YAML file when path is non-empty, merged
// over the defaults. Zero values in the file keep the default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read resolver config: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse resolver config: %w", err)
	}
	if file.Algorithm != "" {
		cfg.Algorithm = file.Algorithm
	}
	if file.FuzzyThreshold > 0 {
		cfg.FuzzyThreshold = file.FuzzyThreshold
	}
	if file.CombinedThreshold > 0 {
		cfg.CombinedThreshold = file.CombinedThreshold
	}
	if file.NameWeight > 0 {
		cfg.NameWeight = file.NameWeight
	}
	if file.AddressWeight > 0 {
		cfg.AddressWeight = file.AddressWeight
	}
	if file.ExactNameConfidence > 0 {
		cfg.ExactNameConfidence = file.ExactNameConfidence
	}
	if file.ReviewMargin > 0 {
		cfg.ReviewMargin = file.ReviewMargin
	}
	return cfg, nil
}
