// Package engine runs the serving pipeline: vocabulary validation, feature
// enrichment, encoding, model dispatch, and response shaping. An Engine is
// built once at startup from loaded artifacts and is safe for concurrent use;
// every call is a pure function of its inputs and the immutable models.
package engine

import (
	"sort"

	"github.com/agrisense/farm-recommender/internal/artifacts"
	"github.com/agrisense/farm-recommender/internal/encoding"
	"github.com/agrisense/farm-recommender/internal/features"
	"github.com/agrisense/farm-recommender/internal/metrics"
	"github.com/agrisense/farm-recommender/internal/models"
	"github.com/agrisense/farm-recommender/internal/schema"
	"github.com/agrisense/farm-recommender/internal/vocab"
)

// Derived feature column names the crop encoder was fitted with.
const (
	colClimateZone   = "Climate_Zone"
	colSoilFertility = "Soil_Fertility"
)

// topRecommendations is how many ranked crops a recommendation returns.
const topRecommendations = 3

// Classifier produces a probability distribution over a fixed set of labels.
type Classifier interface {
	Labels() []string
	PredictProba(row []float64) ([]float64, error)
}

// LabelPredictor produces a single categorical label.
type LabelPredictor interface {
	Predict(row []float64) (string, error)
}

// Regressor produces one float per target, in training-time target order.
type Regressor interface {
	Predict(row []float64) ([]float64, error)
}

// Params holds the artifacts an Engine serves from. Fertilizer may be nil.
type Params struct {
	Vocabulary    *vocab.Vocabulary
	Schema        *schema.TargetSchema
	CropEncoder   *encoding.Encoder
	TargetEncoder *encoding.Encoder
	CropModel     Classifier
	Regressor     Regressor
	Fertilizer    LabelPredictor
}

// Engine serves crop recommendations and nutrient/water-quality predictions.
type Engine struct {
	vocab         *vocab.Vocabulary
	schema        *schema.TargetSchema
	cropEncoder   *encoding.Encoder
	targetEncoder *encoding.Encoder
	cropModel     Classifier
	regressor     Regressor
	fertilizer    LabelPredictor
}

// New builds an Engine from its parts.
func New(p Params) *Engine {
	return &Engine{
		vocab:         p.Vocabulary,
		schema:        p.Schema,
		cropEncoder:   p.CropEncoder,
		targetEncoder: p.TargetEncoder,
		cropModel:     p.CropModel,
		regressor:     p.Regressor,
		fertilizer:    p.Fertilizer,
	}
}

// FromBundle builds an Engine over a loaded artifact bundle.
func FromBundle(b *artifacts.Bundle) *Engine {
	p := Params{
		Vocabulary:    b.Vocabulary,
		Schema:        b.Schema,
		CropEncoder:   b.CropEncoder,
		TargetEncoder: b.TargetEncoder,
		CropModel:     b.CropModel,
		Regressor:     b.Regressor,
	}
	if b.Fertilizer != nil {
		p.Fertilizer = b.Fertilizer
	}
	return New(p)
}

// Vocabulary returns the closed vocabularies for serving to clients.
func (e *Engine) Vocabulary() map[string][]string {
	return e.vocab.Record()
}

// HasFertilizer reports whether a fertilizer classifier is loaded.
func (e *Engine) HasFertilizer() bool {
	return e.fertilizer != nil
}

// RecommendCrop validates the inputs, derives climate zone and fertility
// score, and ranks crops by classifier probability. Validation failures are
// returned before any model is touched.
func (e *Engine) RecommendCrop(region, soilType string) (*models.RecommendCropResponse, error) {
	values := map[string]string{
		vocab.FieldRegion:   region,
		vocab.FieldSoilType: soilType,
	}
	if err := vocab.RequireFields(values, vocab.FieldRegion, vocab.FieldSoilType); err != nil {
		return nil, err
	}
	if err := e.vocab.Validate(values, vocab.FieldRegion, vocab.FieldSoilType); err != nil {
		return nil, err
	}

	climateZone, fertilityScore := features.Enrich(region, soilType)
	row := e.cropEncoder.Transform(
		map[string]string{
			vocab.FieldRegion:   region,
			vocab.FieldSoilType: soilType,
			colClimateZone:      climateZone,
		},
		map[string]float64{colSoilFertility: float64(fertilityScore)},
	)

	proba, err := e.cropModel.PredictProba(row)
	if err != nil {
		metrics.PredictionFailures.WithLabelValues("crop").Inc()
		return nil, err
	}

	ranked := rankClasses(e.cropModel.Labels(), proba, topRecommendations)
	metrics.PredictionsTotal.WithLabelValues("crop").Inc()

	return &models.RecommendCropResponse{
		RecommendedCrop:    ranked[0].Crop,
		TopRecommendations: ranked,
		Region:             region,
		SoilType:           soilType,
	}, nil
}

// Predict validates the inputs, encodes them, and maps the regression vector
// onto named nutrient and water-quality groups. The fertilizer classifier is
// consulted only when one was loaded; otherwise the response carries null.
func (e *Engine) Predict(region, soilType, cropName string) (*models.PredictResponse, error) {
	values := map[string]string{
		vocab.FieldRegion:   region,
		vocab.FieldSoilType: soilType,
		vocab.FieldCropName: cropName,
	}
	if err := vocab.RequireFields(values, vocab.FieldRegion, vocab.FieldSoilType, vocab.FieldCropName); err != nil {
		return nil, err
	}
	if err := e.vocab.Validate(values, vocab.FieldRegion, vocab.FieldSoilType, vocab.FieldCropName); err != nil {
		return nil, err
	}

	row := e.targetEncoder.Transform(values, nil)

	vector, err := e.regressor.Predict(row)
	if err != nil {
		metrics.PredictionFailures.WithLabelValues("targets").Inc()
		return nil, err
	}

	resp := &models.PredictResponse{
		Nutrients:    make(map[string]float64),
		WaterQuality: make(map[string]float64),
	}
	e.shape(vector, resp)

	if e.fertilizer != nil {
		label, err := e.fertilizer.Predict(row)
		if err != nil {
			metrics.PredictionFailures.WithLabelValues("targets").Inc()
			return nil, err
		}
		resp.Fertilizer = &label
	}

	metrics.PredictionsTotal.WithLabelValues("targets").Inc()
	return resp, nil
}

// shape distributes the prediction vector over the schema's partitions.
// Every index is consumed exactly once; additional targets outside the known
// water-quality set are dropped from the response and counted.
func (e *Engine) shape(vector []float64, resp *models.PredictResponse) {
	for i, target := range e.schema.Targets {
		if i >= len(vector) {
			break
		}
		value := vector[i]

		if e.schema.IsNutrient(target) {
			resp.Nutrients[target] = value
			continue
		}
		if additional, ok := schema.ParseAdditionalTarget(target); ok {
			resp.WaterQuality[additional.DisplayName()] = value
			continue
		}
		metrics.DroppedTargets.Inc()
	}
}

// rankClasses returns the top n classes by probability, descending. Equal
// probabilities keep the classifier's internal class order.
func rankClasses(labels []string, proba []float64, n int) []models.CropScore {
	indices := make([]int, len(proba))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return proba[indices[a]] > proba[indices[b]]
	})

	if n > len(indices) {
		n = len(indices)
	}
	ranked := make([]models.CropScore, 0, n)
	for _, idx := range indices[:n] {
		ranked = append(ranked, models.CropScore{
			Crop:       labels[idx],
			Confidence: proba[idx],
		})
	}
	return ranked
}
