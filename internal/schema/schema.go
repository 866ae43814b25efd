// Package schema describes the outputs of the trained regressor: the ordered
// target list recorded at training time, its partition into nutrient and
// water-quality groups, and the optional fertilizer column. Loaded once at
// startup and read-only afterwards.
package schema

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// TargetSchema is the metadata record written by the trainer alongside the
// model artifacts. Targets fixes both the length and the order of the
// regressor's output vector.
type TargetSchema struct {
	Targets           []string `json:"targets"`
	NutrientTargets   []string `json:"nutrient_targets"`
	AdditionalTargets []string `json:"additional_targets"`
	FertilizerColumn  string   `json:"fertilizer_column"`
}

// Load reads the target schema from a meta.json file and verifies its
// internal consistency.
func Load(path string) (*TargetSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read schema: %w", err)
	}

	var s TargetSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not parse schema: %w", err)
	}

	if err := s.Verify(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Verify checks that the nutrient and additional partitions are disjoint and
// together cover every target exactly once.
func (s *TargetSchema) Verify() error {
	if len(s.Targets) == 0 {
		return fmt.Errorf("schema has no targets")
	}
	if len(s.NutrientTargets)+len(s.AdditionalTargets) != len(s.Targets) {
		return fmt.Errorf("schema partition mismatch: %d nutrient + %d additional != %d targets",
			len(s.NutrientTargets), len(s.AdditionalTargets), len(s.Targets))
	}

	group := make(map[string]string, len(s.Targets))
	for _, t := range s.NutrientTargets {
		group[t] = "nutrient"
	}
	for _, t := range s.AdditionalTargets {
		if group[t] == "nutrient" {
			return fmt.Errorf("target %q appears in both partitions", t)
		}
		group[t] = "additional"
	}
	for _, t := range s.Targets {
		if group[t] == "" {
			return fmt.Errorf("target %q belongs to no partition", t)
		}
	}
	return nil
}

// HasFertilizer reports whether a fertilizer column existed at training time.
// Only then may a fertilizer classifier be loaded or consulted.
func (s *TargetSchema) HasFertilizer() bool {
	return s.FertilizerColumn != ""
}

// IsNutrient reports whether the named target is in the nutrient group.
func (s *TargetSchema) IsNutrient(target string) bool {
	for _, t := range s.NutrientTargets {
		if t == target {
			return true
		}
	}
	return false
}

// AdditionalTarget enumerates the water-quality targets the shaper knows how
// to label. The set is closed on purpose: a new training target without a
// case here is dropped from responses rather than guessed at.
type AdditionalTarget int

const (
	AdditionalPH AdditionalTarget = iota
	AdditionalTurbidity
	AdditionalWaterTemp
)

// ParseAdditionalTarget maps a training-time target name onto the known
// water-quality targets. ok is false for names outside the closed set.
func ParseAdditionalTarget(name string) (AdditionalTarget, bool) {
	switch name {
	case "Recommended pH":
		return AdditionalPH, true
	case "Turbidity (NTU)":
		return AdditionalTurbidity, true
	case "Water Temp (°C)":
		return AdditionalWaterTemp, true
	default:
		return 0, false
	}
}

// DisplayName is the user-facing label for a water-quality target.
func (t AdditionalTarget) DisplayName() string {
	switch t {
	case AdditionalPH:
		return "pH"
	case AdditionalTurbidity:
		return "Turbidity (NTU)"
	case AdditionalWaterTemp:
		return "Water Temperature (°C)"
	default:
		return ""
	}
}
