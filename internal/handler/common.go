package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/dandantas/odoo-probe/internal/database"
	"github.com/dandantas/odoo-probe/internal/service"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ListResponse is the paginated envelope of list endpoints
type ListResponse[T any] struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Results []T   `json:"results"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeServiceError maps service and repository errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrNotAcknowledgeable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// historyDisabled answers endpoints that need MongoDB when it is not configured
func historyDisabled(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "history is disabled: MONGO_URI is not set")
}

// decodeJSON decodes a request body
func decodeJSON(r *http.Request, v interface{}) error {
	return sonic.ConfigStd.NewDecoder(r.Body).Decode(v)
}

// parseQueryInt parses an integer query parameter with a default value
func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// parsePagination reads page and limit, clamping limit to maxPageLimit
func parsePagination(r *http.Request) (page, limit int) {
	page = parseQueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	limit = parseQueryInt(r, "limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit
}

// parseQueryBool parses a boolean query parameter
func parseQueryBool(r *http.Request, key string) bool {
	value := r.URL.Query().Get(key)
	return value == "true" || value == "1"
}
