// Package handler exposes the auth and game services over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gaming-library/internal/domain"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Client-facing messages for the errors callers are expected to act on
var errorMessages = map[error]string{
	domain.ErrInvalidCredentials: "Invalid email or password",
	domain.ErrInvalidToken:       "Invalid token",
	domain.ErrTokenExpired:       "Token has expired",
	domain.ErrUserNotFound:       "User not found",
	domain.ErrUsernameTaken:      "Username already taken",
	domain.ErrEmailTaken:         "Email already registered",
	errMissingAuthHeader:         "Missing or invalid Authorization header",
}

var errMissingAuthHeader = errors.New("missing or invalid authorization header")

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeCreated writes a 201 JSON response
func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	for target, text := range errorMessages {
		if errors.Is(err, target) {
			msg = text
			break
		}
	}
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, errMissingAuthHeader):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConflictError(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Unexpected errors are
// logged and reported generically.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed", "op", op, "error", err)
		writeError(w, status, domain.ErrInternalError)
	case http.StatusBadGateway:
		logger.Warn("upstream failure", "op", op, "error", err)
		writeError(w, status, domain.ErrUpstream)
	default:
		writeError(w, status, err)
	}
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidRequest)
	}
	return nil
}
