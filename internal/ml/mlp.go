package ml

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Layer holds the weights and biases of one dense layer. Weights is indexed
// [input][output].
type Layer struct {
	Weights [][]float64
	Biases  []float64
}

// MLPRegressor is a fitted feed-forward multi-output regressor: ReLU on
// hidden layers, identity on the output layer.
type MLPRegressor struct {
	Layers []Layer
}

// Width returns the encoded input width the regressor was fitted to.
func (m *MLPRegressor) Width() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return len(m.Layers[0].Weights)
}

// Outputs returns the number of regression targets the model predicts.
func (m *MLPRegressor) Outputs() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return len(m.Layers[len(m.Layers)-1].Biases)
}

// Predict runs a forward pass for one encoded row and returns one float per
// target, in training-time target order.
func (m *MLPRegressor) Predict(row []float64) ([]float64, error) {
	if len(m.Layers) == 0 {
		return nil, &PredictionError{Model: "mlp", Err: fmt.Errorf("no layers loaded")}
	}
	if len(row) != m.Width() {
		return nil, &PredictionError{
			Model: "mlp",
			Err:   fmt.Errorf("input width %d, model expects %d", len(row), m.Width()),
		}
	}

	hidden := row
	for l, layer := range m.Layers {
		if len(layer.Weights) != len(hidden) {
			return nil, &PredictionError{
				Model: "mlp",
				Err:   fmt.Errorf("layer %d expects %d inputs, got %d", l, len(layer.Weights), len(hidden)),
			}
		}

		out := make([]float64, len(layer.Biases))
		copy(out, layer.Biases)
		for i, x := range hidden {
			if x == 0 {
				continue
			}
			weights := layer.Weights[i]
			if len(weights) != len(out) {
				return nil, &PredictionError{
					Model: "mlp",
					Err:   fmt.Errorf("layer %d weight row %d has %d outputs, expected %d", l, i, len(weights), len(out)),
				}
			}
			for j, w := range weights {
				out[j] += x * w
			}
		}

		// ReLU on all but the output layer
		if l < len(m.Layers)-1 {
			for j, v := range out {
				if v < 0 {
					out[j] = 0
				}
			}
		}
		hidden = out
	}

	return hidden, nil
}

// Save writes the regressor to disk as gob.
func (m *MLPRegressor) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(m)
}

// LoadMLP reads a fitted regressor from disk.
func LoadMLP(path string) (*MLPRegressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m MLPRegressor
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("could not decode regressor: %w", err)
	}
	return &m, nil
}
