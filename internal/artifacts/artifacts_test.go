package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrisense/farm-recommender/internal/encoding"
	"github.com/agrisense/farm-recommender/internal/ml"
)

const testMeta = `{
	"targets": ["N (kg/ha)", "Recommended pH"],
	"nutrient_targets": ["N (kg/ha)"],
	"additional_targets": ["Recommended pH"],
	"fertilizer_column": "Fertilizer"
}`

const testMetaNoFertilizer = `{
	"targets": ["N (kg/ha)", "Recommended pH"],
	"nutrient_targets": ["N (kg/ha)"],
	"additional_targets": ["Recommended pH"],
	"fertilizer_column": null
}`

const testVocabulary = `{
	"Region": ["Bihar", "Punjab"],
	"Soil Type": ["Alluvial", "Sandy"],
	"Crop Name": ["Rice", "Wheat"]
}`

func stump(class int) ml.Tree {
	return ml.Tree{Nodes: []ml.TreeNode{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
		{Leaf: true, Class: class},
		{Leaf: true, Class: class},
	}}
}

// writeBundle writes a complete, shape-consistent artifact set into dir.
func writeBundle(t *testing.T, dir, meta string, withFertilizerModel bool) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, FileMeta), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileVocabulary), []byte(testVocabulary), 0644); err != nil {
		t.Fatal(err)
	}

	targetEncoder := &encoding.Encoder{
		Categorical: []encoding.Column{
			{Name: "Region", Categories: []string{"Bihar", "Punjab"}},
			{Name: "Soil Type", Categories: []string{"Alluvial", "Sandy"}},
			{Name: "Crop Name", Categories: []string{"Rice", "Wheat"}},
		},
	}
	if err := targetEncoder.Save(filepath.Join(dir, FileTargetEncoder)); err != nil {
		t.Fatal(err)
	}

	cropEncoder := &encoding.Encoder{
		Categorical: []encoding.Column{
			{Name: "Region", Categories: []string{"Bihar", "Punjab"}},
			{Name: "Soil Type", Categories: []string{"Alluvial", "Sandy"}},
			{Name: "Climate_Zone", Categories: []string{"Humid", "Semi-Arid"}},
		},
		Numeric: []string{"Soil_Fertility"},
	}
	if err := cropEncoder.Save(filepath.Join(dir, FileCropEncoder)); err != nil {
		t.Fatal(err)
	}

	cropModel := &ml.ForestClassifier{
		Classes:    []string{"Rice", "Wheat"},
		InputWidth: cropEncoder.Width(),
		Trees:      []ml.Tree{stump(0), stump(1)},
	}
	if err := cropModel.Save(filepath.Join(dir, FileCropModel)); err != nil {
		t.Fatal(err)
	}

	width := targetEncoder.Width()
	weights := make([][]float64, width)
	for i := range weights {
		weights[i] = []float64{1, 0.5}
	}
	regressor := &ml.MLPRegressor{Layers: []ml.Layer{
		{Weights: weights, Biases: []float64{0, 0}},
	}}
	if err := regressor.Save(filepath.Join(dir, FileRegressor)); err != nil {
		t.Fatal(err)
	}

	if withFertilizerModel {
		fertilizer := &ml.ForestClassifier{
			Classes:    []string{"DAP", "Urea"},
			InputWidth: width,
			Trees:      []ml.Tree{stump(0)},
		}
		if err := fertilizer.Save(filepath.Join(dir, FileFertilizerModel)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadFullBundle(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, testMeta, true)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b.Fertilizer == nil {
		t.Error("Expected fertilizer model to be loaded")
	}
	if !b.Vocabulary.Contains("Region", "Punjab") {
		t.Error("Expected vocabulary to be loaded")
	}
	if len(b.Schema.Targets) != 2 {
		t.Errorf("Expected 2 targets, got %d", len(b.Schema.Targets))
	}
}

func TestLoadWithoutFertilizerModelFile(t *testing.T) {
	dir := t.TempDir()
	// Metadata says a fertilizer column existed, but the artifact is absent.
	writeBundle(t, dir, testMeta, false)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Fertilizer != nil {
		t.Error("Expected nil fertilizer model when artifact file is absent")
	}
}

func TestLoadNoFertilizerColumn(t *testing.T) {
	dir := t.TempDir()
	// A fertilizer model on disk is ignored when metadata has no column.
	writeBundle(t, dir, testMetaNoFertilizer, true)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Fertilizer != nil {
		t.Error("Metadata without fertilizer column must not load a fertilizer model")
	}
}

func TestLoadMissingRequiredArtifact(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, testMeta, true)
	if err := os.Remove(filepath.Join(dir, FileCropModel)); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Expected load failure for missing crop model")
	}

	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected LoadError, got %T", err)
	}
	if lerr.Artifact != FileCropModel {
		t.Errorf("Expected error to name %s, got %s", FileCropModel, lerr.Artifact)
	}
}

func TestLoadRejectsEmptyClassifier(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, testMeta, false)

	cropEncoderWidth := 7 // 2 + 2 + 2 categories + 1 numeric
	for _, empty := range []*ml.ForestClassifier{
		{Classes: nil, InputWidth: cropEncoderWidth, Trees: []ml.Tree{stump(0)}},
		{Classes: []string{"Rice", "Wheat"}, InputWidth: cropEncoderWidth, Trees: nil},
	} {
		if err := empty.Save(filepath.Join(dir, FileCropModel)); err != nil {
			t.Fatal(err)
		}

		_, err := Load(dir)
		if err == nil {
			t.Fatal("Expected load failure for unfitted crop model")
		}
		var lerr *LoadError
		if !errors.As(err, &lerr) {
			t.Fatalf("Expected LoadError, got %T", err)
		}
		if lerr.Artifact != FileCropModel {
			t.Errorf("Expected error to name %s, got %s", FileCropModel, lerr.Artifact)
		}
	}
}

func TestLoadDetectsWidthDrift(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, testMeta, false)

	// Overwrite the crop model with one fitted to a different input width.
	drifted := &ml.ForestClassifier{
		Classes:    []string{"Rice", "Wheat"},
		InputWidth: 99,
		Trees:      []ml.Tree{stump(0)},
	}
	if err := drifted.Save(filepath.Join(dir, FileCropModel)); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Expected width drift to fail at load time")
	}
}
