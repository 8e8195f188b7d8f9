package handler

// RESPONSE HELPERS:
// Every API error has the same shape:
//   {"error": "URL is required"}
//
// Validation and not-found errors carry their own message. Anything else is
// a store fault and gets the fixed message of the route that failed, so SQL,
// file paths and driver text never reach the client.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/visions/internal/apperror"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is returned by update and delete.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation → 400, message from the error
//	apperror.ErrNotFound   → 404, "Image not found"
//	anything else          → 500, fallback
func writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Image not found"})
			return
		}
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fallback})
}
