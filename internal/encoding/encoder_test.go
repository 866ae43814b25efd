package encoding

import (
	"path/filepath"
	"reflect"
	"testing"
)

func testEncoder() *Encoder {
	return &Encoder{
		Categorical: []Column{
			{Name: "Region", Categories: []string{"Bihar", "Punjab"}},
			{Name: "Soil Type", Categories: []string{"Alluvial", "Black", "Sandy"}},
		},
		Numeric: []string{"Soil_Fertility"},
	}
}

func TestWidth(t *testing.T) {
	e := testEncoder()
	if w := e.Width(); w != 6 {
		t.Errorf("Expected width 6, got %d", w)
	}
}

func TestTransformColumnOrder(t *testing.T) {
	e := testEncoder()

	row := e.Transform(
		map[string]string{"Region": "Punjab", "Soil Type": "Black"},
		map[string]float64{"Soil_Fertility": 5},
	)

	expected := []float64{0, 1, 0, 1, 0, 5}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("Transform = %v, expected %v", row, expected)
	}
}

func TestTransformUnknownValueZeroBlock(t *testing.T) {
	e := testEncoder()

	row := e.Transform(
		map[string]string{"Region": "Atlantis", "Soil Type": "Alluvial"},
		map[string]float64{"Soil_Fertility": 3},
	)

	expected := []float64{0, 0, 1, 0, 0, 3}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("Transform = %v, expected %v", row, expected)
	}
}

func TestTransformMissingNumericDefaultsZero(t *testing.T) {
	e := testEncoder()

	row := e.Transform(map[string]string{"Region": "Bihar", "Soil Type": "Sandy"}, nil)

	if len(row) != e.Width() {
		t.Fatalf("Expected width %d, got %d", e.Width(), len(row))
	}
	if row[5] != 0 {
		t.Errorf("Expected missing numeric to encode as 0, got %v", row[5])
	}
}

func TestVerify(t *testing.T) {
	e := testEncoder()

	if err := e.Verify(6); err != nil {
		t.Errorf("Expected matching width to verify, got %v", err)
	}
	if err := e.Verify(7); err == nil {
		t.Error("Expected width mismatch to fail verification")
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.gob")

	e := testEncoder()
	if err := e.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(loaded, e) {
		t.Errorf("Loaded encoder differs: %+v vs %+v", loaded, e)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.gob")); err == nil {
		t.Error("Expected error for missing encoder file")
	}
}
