package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mdfaizan0/groove/internal/database"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondWithValidationError sends a structured validation error response
func (gs *GrooveServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errs []ValidationError) {
	gs.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errs,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	gs.respondJSON(w, ValidationResult{
		Valid:  false,
		Errors: errs,
	})
}

// respondWithError sends a structured error response. Internal error
// detail goes to the log, never to the caller.
func (gs *GrooveServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := gs.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})
	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	gs.respondJSON(w, map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// respondWithStorageError maps storage sentinel errors to HTTP statuses
func (gs *GrooveServer) respondWithStorageError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		gs.respondWithError(w, r, http.StatusNotFound, resource+" not found", err)
	case errors.Is(err, database.ErrConflict):
		gs.respondWithError(w, r, http.StatusConflict, resource+" already exists", err)
	default:
		gs.respondWithError(w, r, http.StatusInternalServerError, "Storage error", err)
	}
}

// parsePathID validates a positive integer ID at the given path segment
func parsePathID(pathParts []string, index int, field string) (int, *ValidationError) {
	if len(pathParts) <= index || pathParts[index] == "" {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " is required",
			Code:    "MISSING_" + strings.ToUpper(field),
		}
	}

	id, err := strconv.Atoi(pathParts[index])
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " must be a valid integer",
			Code:    "INVALID_" + strings.ToUpper(field) + "_FORMAT",
		}
	}
	if id <= 0 {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " must be positive",
			Code:    "INVALID_" + strings.ToUpper(field) + "_VALUE",
		}
	}
	return id, nil
}

// validatePlaylistName enforces the 3-60 character bound after trimming
func validatePlaylistName(name string) *ValidationError {
	name = strings.TrimSpace(name)

	if len(name) < 3 {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name must be at least 3 characters",
			Code:    "PLAYLIST_NAME_TOO_SHORT",
		}
	}
	if len(name) > 60 {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name too long (max 60 characters)",
			Code:    "PLAYLIST_NAME_TOO_LONG",
		}
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name contains invalid characters",
			Code:    "INVALID_PLAYLIST_NAME_CHARACTERS",
		}
	}
	return nil
}

// validateSearchQuery validates search query parameters
func validateSearchQuery(query string) *ValidationError {
	if len(query) > 1000 {
		return &ValidationError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}
	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "search",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}
	return nil
}

// sanitizeInput strips null bytes and surrounding whitespace
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
