// Package encoding wraps the fitted categorical encoders produced at
// training time. An Encoder reproduces, in column order and one-hot
// semantics, the exact transformation the models were trained against; any
// drift between the two silently breaks predictions, so the loader verifies
// widths against the model artifacts at startup.
package encoding

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Column is one categorical input column with its training-time category
// order. Each category occupies one indicator position in the encoded row.
type Column struct {
	Name       string
	Categories []string
}

// Encoder is a fitted one-hot encoder: categorical columns first, each
// expanded to an indicator block, then numeric passthrough columns appended
// in recorded order. Fields are exported for gob persistence; the struct is
// never mutated after load.
type Encoder struct {
	Categorical []Column
	Numeric     []string
}

// Width returns the fixed width of encoded rows.
func (e *Encoder) Width() int {
	width := len(e.Numeric)
	for _, col := range e.Categorical {
		width += len(col.Categories)
	}
	return width
}

// Transform encodes one raw feature row into the fixed-width numeric layout
// the downstream model expects. A categorical value absent from its column's
// categories encodes as an all-zero indicator block rather than failing;
// the validator rejects such values earlier, this is defense in depth.
// Missing numeric values encode as zero.
func (e *Encoder) Transform(categorical map[string]string, numeric map[string]float64) []float64 {
	row := make([]float64, 0, e.Width())

	for _, col := range e.Categorical {
		block := make([]float64, len(col.Categories))
		value := categorical[col.Name]
		for i, category := range col.Categories {
			if category == value {
				block[i] = 1
				break
			}
		}
		row = append(row, block...)
	}

	for _, name := range e.Numeric {
		row = append(row, numeric[name])
	}

	return row
}

// Verify checks the encoder against the input width a model was fitted to.
// Run at startup so training/serving drift fails fast instead of deep inside
// prediction.
func (e *Encoder) Verify(modelInputWidth int) error {
	if w := e.Width(); w != modelInputWidth {
		return fmt.Errorf("encoder width %d does not match model input width %d", w, modelInputWidth)
	}
	return nil
}

// Save writes the encoder to disk as gob.
func (e *Encoder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(e)
}

// Load reads a fitted encoder from disk.
func Load(path string) (*Encoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var e Encoder
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		return nil, fmt.Errorf("could not decode encoder: %w", err)
	}
	return &e, nil
}
