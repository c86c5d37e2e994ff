package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"xlorad/internal/engine"
	"xlorad/internal/manager"
	"xlorad/internal/model"
	"xlorad/pkg/types"
)

// HTTPError lets an error carry its own HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps manager and engine errors to HTTP status codes.
// Checked most-specific first so wrapped errors land on the right code.
func statusForError(err error) int {
	switch {
	case engine.IsValidation(err):
		return http.StatusBadRequest
	case engine.IsContextOverflow(err):
		return http.StatusBadRequest
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if _, ok := model.AsLoadError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeJSONError writes the consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
