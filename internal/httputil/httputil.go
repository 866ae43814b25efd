// Package httputil holds small JSON response helpers shared by handlers
// outside the api package.
package httputil

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/agrisense/farm-recommender/internal/logging"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("encoding response")
	}
}

// RespondError sends a JSON error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
