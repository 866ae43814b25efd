package models

// RecommendCropRequest asks for the best crop for a region and soil type.
// Field names match the training dataset columns, spaces included.
type RecommendCropRequest struct {
	Region   string `json:"Region"`
	SoilType string `json:"Soil Type"`
}

// CropScore is one ranked crop recommendation with its confidence.
type CropScore struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// RecommendCropResponse carries the best crop plus the top-ranked
// alternatives, confidences descending.
type RecommendCropResponse struct {
	RecommendedCrop    string      `json:"recommended_crop"`
	TopRecommendations []CropScore `json:"top_recommendations"`
	Region             string      `json:"region"`
	SoilType           string      `json:"soil_type"`
}

// PredictRequest asks for nutrient and water-quality predictions for a
// region, soil type, and crop.
type PredictRequest struct {
	Region   string `json:"Region"`
	SoilType string `json:"Soil Type"`
	CropName string `json:"Crop Name"`
}

// PredictResponse groups the regression vector into named categories.
// Fertilizer is null when no fertilizer classifier is loaded; that is a
// normal state, not an error.
type PredictResponse struct {
	Nutrients    map[string]float64 `json:"Nutrients"`
	WaterQuality map[string]float64 `json:"Water Quality"`
	Fertilizer   *string            `json:"Fertilizer"`
}
