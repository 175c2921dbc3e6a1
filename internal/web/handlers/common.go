package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-compare/internal/landmark"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the landmark error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, landmark.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, landmark.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, landmark.ErrDetectionFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondErr sends err with the status derived from its kind. Server-side
// failures are logged and replaced with fallback so internals do not leak.
func respondErr(w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

// decodeJSON decodes the request body into v, responding 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, landmark.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Face comparison service is running",
	})
}
