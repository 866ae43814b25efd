package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	content := `{
		"targets": ["N (kg/ha)", "Recommended pH"],
		"nutrient_targets": ["N (kg/ha)"],
		"additional_targets": ["Recommended pH"],
		"fertilizer_column": "Fertilizer"
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !s.HasFertilizer() {
		t.Error("Expected fertilizer column to be present")
	}
	if !s.IsNutrient("N (kg/ha)") {
		t.Error("Expected N (kg/ha) to be a nutrient target")
	}
	if s.IsNutrient("Recommended pH") {
		t.Error("Recommended pH should not be a nutrient target")
	}
}

func TestVerifyRejectsBadPartitions(t *testing.T) {
	tests := []struct {
		name   string
		schema TargetSchema
	}{
		{
			"empty targets",
			TargetSchema{},
		},
		{
			"count mismatch",
			TargetSchema{
				Targets:         []string{"a", "b"},
				NutrientTargets: []string{"a"},
			},
		},
		{
			"overlap",
			TargetSchema{
				Targets:           []string{"a", "b"},
				NutrientTargets:   []string{"a"},
				AdditionalTargets: []string{"a"},
			},
		},
		{
			"orphan target",
			TargetSchema{
				Targets:           []string{"a", "b"},
				NutrientTargets:   []string{"a"},
				AdditionalTargets: []string{"c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Verify(); err == nil {
				t.Error("Expected Verify to fail")
			}
		})
	}
}

func TestHasFertilizerEmpty(t *testing.T) {
	s := TargetSchema{
		Targets:         []string{"a"},
		NutrientTargets: []string{"a"},
	}
	if s.HasFertilizer() {
		t.Error("Empty fertilizer column should report no fertilizer")
	}
}

func TestParseAdditionalTarget(t *testing.T) {
	tests := []struct {
		name    string
		display string
		ok      bool
	}{
		{"Recommended pH", "pH", true},
		{"Turbidity (NTU)", "Turbidity (NTU)", true},
		{"Water Temp (°C)", "Water Temperature (°C)", true},
		{"Salinity (ppt)", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := ParseAdditionalTarget(tt.name)
			if ok != tt.ok {
				t.Fatalf("ParseAdditionalTarget(%q) ok = %v, expected %v", tt.name, ok, tt.ok)
			}
			if ok && target.DisplayName() != tt.display {
				t.Errorf("DisplayName = %q, expected %q", target.DisplayName(), tt.display)
			}
		})
	}
}
