// Package artifacts loads the trained model bundle from the models
// directory at startup. Required artifacts abort startup when missing or
// corrupt; the fertilizer classifier alone is optional. The returned Bundle
// is immutable and shared by all requests for the process lifetime.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agrisense/farm-recommender/internal/encoding"
	"github.com/agrisense/farm-recommender/internal/ml"
	"github.com/agrisense/farm-recommender/internal/schema"
	"github.com/agrisense/farm-recommender/internal/vocab"
)

// Artifact file names, as written by the offline trainer.
const (
	FileMeta            = "meta.json"
	FileVocabulary      = "vocabulary.json"
	FileTargetEncoder   = "target_encoder.gob"
	FileCropEncoder     = "crop_encoder.gob"
	FileCropModel       = "crop_model.gob"
	FileRegressor       = "regressor.gob"
	FileFertilizerModel = "fertilizer_model.gob"
)

// LoadError reports a required artifact that is missing, corrupt, or
// inconsistent with the rest of the bundle. Fatal at startup.
type LoadError struct {
	Artifact string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Bundle holds every loaded artifact. Fertilizer is nil when no fertilizer
// column existed at training time or its model file is absent; that is a
// normal state, not a failure.
type Bundle struct {
	Vocabulary    *vocab.Vocabulary
	Schema        *schema.TargetSchema
	CropEncoder   *encoding.Encoder
	TargetEncoder *encoding.Encoder
	CropModel     *ml.ForestClassifier
	Regressor     *ml.MLPRegressor
	Fertilizer    *ml.ForestClassifier
}

// Load reads the full bundle from modelsDir and verifies that the encoders
// and models agree on shapes, so drift between training and serving fails at
// startup instead of deep inside a prediction.
func Load(modelsDir string) (*Bundle, error) {
	b := &Bundle{}

	s, err := schema.Load(filepath.Join(modelsDir, FileMeta))
	if err != nil {
		return nil, &LoadError{Artifact: FileMeta, Err: err}
	}
	b.Schema = s

	v, err := vocab.Load(filepath.Join(modelsDir, FileVocabulary))
	if err != nil {
		return nil, &LoadError{Artifact: FileVocabulary, Err: err}
	}
	b.Vocabulary = v

	b.TargetEncoder, err = encoding.Load(filepath.Join(modelsDir, FileTargetEncoder))
	if err != nil {
		return nil, &LoadError{Artifact: FileTargetEncoder, Err: err}
	}
	b.CropEncoder, err = encoding.Load(filepath.Join(modelsDir, FileCropEncoder))
	if err != nil {
		return nil, &LoadError{Artifact: FileCropEncoder, Err: err}
	}

	b.CropModel, err = ml.LoadForest(filepath.Join(modelsDir, FileCropModel))
	if err != nil {
		return nil, &LoadError{Artifact: FileCropModel, Err: err}
	}
	b.Regressor, err = ml.LoadMLP(filepath.Join(modelsDir, FileRegressor))
	if err != nil {
		return nil, &LoadError{Artifact: FileRegressor, Err: err}
	}

	// The fertilizer model is used only when the training metadata says a
	// fertilizer column existed and the artifact is actually present.
	if s.HasFertilizer() {
		path := filepath.Join(modelsDir, FileFertilizerModel)
		if _, statErr := os.Stat(path); statErr == nil {
			b.Fertilizer, err = ml.LoadForest(path)
			if err != nil {
				return nil, &LoadError{Artifact: FileFertilizerModel, Err: err}
			}
		}
	}

	if err := b.verify(); err != nil {
		return nil, err
	}
	return b, nil
}

// verify cross-checks encoder widths and target counts against the models.
func (b *Bundle) verify() error {
	if err := verifyFitted(b.CropModel); err != nil {
		return &LoadError{Artifact: FileCropModel, Err: err}
	}
	if err := b.CropEncoder.Verify(b.CropModel.Width()); err != nil {
		return &LoadError{Artifact: FileCropEncoder, Err: err}
	}
	if err := b.TargetEncoder.Verify(b.Regressor.Width()); err != nil {
		return &LoadError{Artifact: FileTargetEncoder, Err: err}
	}
	if got, want := b.Regressor.Outputs(), len(b.Schema.Targets); got != want {
		return &LoadError{
			Artifact: FileRegressor,
			Err:      fmt.Errorf("regressor predicts %d targets, schema lists %d", got, want),
		}
	}
	if b.Fertilizer != nil {
		if err := verifyFitted(b.Fertilizer); err != nil {
			return &LoadError{Artifact: FileFertilizerModel, Err: err}
		}
		if err := b.TargetEncoder.Verify(b.Fertilizer.Width()); err != nil {
			return &LoadError{Artifact: FileFertilizerModel, Err: err}
		}
	}
	return nil
}

// verifyFitted rejects classifier artifacts that carry no classes or trees;
// serving from one would panic on the first request.
func verifyFitted(c *ml.ForestClassifier) error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("classifier has no classes")
	}
	if len(c.Trees) == 0 {
		return fmt.Errorf("classifier has no trees")
	}
	return nil
}
