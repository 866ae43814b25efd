package ml

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func testMLP() *MLPRegressor {
	// 2 inputs -> 2 hidden (ReLU) -> 1 output
	return &MLPRegressor{Layers: []Layer{
		{
			Weights: [][]float64{{1, -1}, {1, 1}},
			Biases:  []float64{0, 0},
		},
		{
			Weights: [][]float64{{2}, {1}},
			Biases:  []float64{0.5},
		},
	}}
}

func TestMLPForwardPass(t *testing.T) {
	m := testMLP()

	// hidden = relu([1+2, -1+2]) = [3, 1]; output = 3*2 + 1*1 + 0.5 = 7.5
	out, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(out))
	}
	if math.Abs(out[0]-7.5) > 1e-12 {
		t.Errorf("Expected 7.5, got %v", out[0])
	}
}

func TestMLPReLUClampsHidden(t *testing.T) {
	m := testMLP()

	// hidden pre-activation = [3, -3] -> relu [3, 0]
	// output = 3*2 + 0*1 + 0.5 = 6.5
	out, err := m.Predict([]float64{3, 0})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// Negative hidden unit must not leak through: without ReLU the result
	// would be 3.5.
	if math.Abs(out[0]-6.5) > 1e-12 {
		t.Errorf("Expected 6.5, got %v", out[0])
	}
}

func TestMLPWidths(t *testing.T) {
	m := testMLP()

	if m.Width() != 2 {
		t.Errorf("Expected input width 2, got %d", m.Width())
	}
	if m.Outputs() != 1 {
		t.Errorf("Expected 1 output, got %d", m.Outputs())
	}
}

func TestMLPWidthMismatch(t *testing.T) {
	m := testMLP()

	_, err := m.Predict([]float64{1})
	if err == nil {
		t.Fatal("Expected error for wrong input width")
	}

	var perr *PredictionError
	if !errors.As(err, &perr) {
		t.Errorf("Expected PredictionError, got %T", err)
	}
}

func TestMLPDeterministic(t *testing.T) {
	m := testMLP()

	first, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated prediction differs: %v vs %v", first, second)
	}
}

func TestMLPSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regressor.gob")

	m := testMLP()
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadMLP(path)
	if err != nil {
		t.Fatalf("LoadMLP failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, m) {
		t.Error("Loaded regressor differs from saved regressor")
	}
}
