// Package api exposes the recommendation service over HTTP. Handlers decode
// requests, delegate to the serving engine, and map domain errors onto
// status codes: vocabulary failures are 400s, model failures are 500s.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/agrisense/farm-recommender/internal/config"
	"github.com/agrisense/farm-recommender/internal/dataset"
	"github.com/agrisense/farm-recommender/internal/engine"
	"github.com/agrisense/farm-recommender/internal/history"
	"github.com/agrisense/farm-recommender/internal/logging"
	"github.com/agrisense/farm-recommender/internal/metrics"
	"github.com/agrisense/farm-recommender/internal/ml"
	"github.com/agrisense/farm-recommender/internal/models"
	"github.com/agrisense/farm-recommender/internal/vocab"
)

// Backend supplies the stores the handlers serve from. The server implements
// it behind a lock so a model pack install can swap everything at once.
type Backend interface {
	Engine() *engine.Engine
	Dataset() *dataset.Store
	History() *history.Store
}

// Handler provides HTTP API endpoints
type Handler struct {
	backend Backend
	cfg     *config.Config
}

// NewHandler creates a new API handler
func NewHandler(backend Backend, cfg *config.Config) *Handler {
	return &Handler{
		backend: backend,
		cfg:     cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Serving endpoints
	r.HandleFunc("/dropdown-data", h.handleDropdownData).Methods("GET")
	r.HandleFunc("/recommend-crop", h.handleRecommendCrop).Methods("POST")
	r.HandleFunc("/predict", h.handlePredict).Methods("POST")

	// Training dataset statistics
	r.HandleFunc("/dataset/stats", h.handleDatasetStats).Methods("GET")

	// Consultation history
	r.HandleFunc("/history", h.handleHistoryList).Methods("GET")
	r.HandleFunc("/history/{id}", h.handleHistoryGet).Methods("GET")
	r.HandleFunc("/history/{id}", h.handleHistoryDelete).Methods("DELETE")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("encoding response")
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps a serving error onto a status code. Vocabulary
// failures carry the offending field into the validation counter.
func respondEngineError(w http.ResponseWriter, err error) {
	var missing *vocab.MissingFieldError
	if errors.As(err, &missing) {
		for _, field := range missing.Fields {
			metrics.ValidationFailures.WithLabelValues(field).Inc()
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var invalid *vocab.InvalidValueError
	if errors.As(err, &invalid) {
		metrics.ValidationFailures.WithLabelValues(invalid.Field).Inc()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var prediction *ml.PredictionError
	if errors.As(err, &prediction) {
		logging.Error().Err(err).Str("model", prediction.Model).Msg("model inference failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logging.Error().Err(err).Msg("prediction failed")
	respondError(w, http.StatusInternalServerError, err.Error())
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	eng := h.backend.Engine()
	info := map[string]interface{}{
		"version":           h.cfg.Version,
		"fertilizer_loaded": eng != nil && eng.HasFertilizer(),
		"dataset_loaded":    h.backend.Dataset() != nil,
	}
	respondJSON(w, http.StatusOK, info)
}

// handleDropdownData returns the closed vocabularies for the UI selectors,
// keyed by training column name.
func (h *Handler) handleDropdownData(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Engine().Vocabulary())
}

// handleRecommendCrop runs the crop recommendation path
func (h *Handler) handleRecommendCrop(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendCropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.backend.Engine().RecommendCrop(req.Region, req.SoilType)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	h.record(history.KindCrop, map[string]string{
		vocab.FieldRegion:   req.Region,
		vocab.FieldSoilType: req.SoilType,
	}, resp)

	respondJSON(w, http.StatusOK, resp)
}

// handlePredict runs the nutrient and water-quality prediction path
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.backend.Engine().Predict(req.Region, req.SoilType, req.CropName)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	h.record(history.KindTargets, map[string]string{
		vocab.FieldRegion:   req.Region,
		vocab.FieldSoilType: req.SoilType,
		vocab.FieldCropName: req.CropName,
	}, resp)

	respondJSON(w, http.StatusOK, resp)
}

// record appends a successful consultation to the history store. Failures
// are logged, never surfaced: the prediction already succeeded.
func (h *Handler) record(kind history.Kind, inputs map[string]string, result interface{}) {
	store := h.backend.History()
	if store == nil {
		return
	}
	if _, err := store.Append(kind, inputs, result); err != nil {
		logging.Warn().Err(err).Msg("could not record consultation")
	}
}

// handleDatasetStats returns aggregate statistics over the training dataset
func (h *Handler) handleDatasetStats(w http.ResponseWriter, r *http.Request) {
	store := h.backend.Dataset()
	if store == nil {
		respondError(w, http.StatusNotFound, "no training dataset loaded")
		return
	}

	stats, err := store.Stats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleHistoryList returns all recorded consultations, newest first
func (h *Handler) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	store := h.backend.History()
	if store == nil {
		respondJSON(w, http.StatusOK, []*history.Record{})
		return
	}

	records, err := store.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

// handleHistoryGet returns one recorded consultation
func (h *Handler) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	store := h.backend.History()
	if store == nil {
		respondError(w, http.StatusNotFound, "history not available")
		return
	}

	record, err := store.Get(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// handleHistoryDelete removes a recorded consultation
func (h *Handler) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	store := h.backend.History()
	if store == nil {
		respondError(w, http.StatusNotFound, "history not available")
		return
	}

	id := mux.Vars(r)["id"]
	if err := store.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
