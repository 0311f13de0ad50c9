// Package handler contains the HTTP layer: request parsing, response
// shaping, and the mapping from domain errors to status codes. No business
// rules live here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/poetry-share/internal/apperror"
)

// ErrorResponse is the single error envelope every endpoint uses:
//
//	{"error": "forbidden", "message": "the author does not match ..."}
//
// (The legacy API mixed {success, msg} and {message} shapes; this is the
// standardized replacement.)
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must go out before the first body byte, hence the ordering.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends the error
// envelope. The service layer returns apperror sentinels; this is the one
// place they meet status codes.
//
// Mapping (normalized from the legacy everything-is-400 convention):
//
//	ErrValidation        → 400
//	ErrUnauthorized      → 401 (no identity presented)
//	ErrInvalidCredential → 401 (identity presented, failed verification)
//	ErrForbidden         → 403
//	ErrNotFound          → 404
//	ErrConflict          → 409
//	anything else        → 500, details withheld from the client
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrInvalidCredential):
			status = http.StatusUnauthorized
			errorType = "invalid_credential"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
