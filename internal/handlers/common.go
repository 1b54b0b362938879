// Package handlers binds the interactive HTTP surface: health,
// metrics, dictionary queries, manual checks, and the event stream.
// Plugin-contributed routes are mounted separately by the registry.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// JSONResponse writes data as a JSON body.
func JSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("handlers: encode response")
	}
}

// JSONStatus writes data as a JSON body with an explicit status code.
func JSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("handlers: encode response")
	}
}

// JSONError writes an error body with the given status.
func JSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
