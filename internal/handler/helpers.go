package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var duplicate *domain.ErrDuplicateAccount
	var invalidCreds *domain.ErrInvalidCredentials
	var unauthorized *domain.ErrUnauthorized
	var unreadable *domain.ErrUnreadableFile
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &duplicate):
		logger.Debug("duplicate account", zap.String("email", duplicate.Email))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &invalidCreds):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unreadable):
		logger.Debug("unreadable upload", zap.String("name", unreadable.Name))
		writeError(w, http.StatusUnprocessableEntity, "Could not read the selected file")
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug("request abandoned", zap.Error(err))
		writeError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
