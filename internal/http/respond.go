package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/fjod/storefront-checkout/internal/backend"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
	Step      string `json:"step,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// statusClientClosedRequest follows the nginx convention for a caller that
// went away before the answer was ready.
const statusClientClosedRequest = 499

// handleBackendError converts commerce backend failures to HTTP responses.
func handleBackendError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, backend.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, backend.ErrUnauthenticated):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, backend.ErrRejected):
		httpStatus = http.StatusUnprocessableEntity
		code = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	case errors.Is(err, context.Canceled):
		// Nobody is left to read this; it only shows up in access logs.
		respondError(w, statusClientClosedRequest, "client_closed_request", "client closed request")
		return
	case errors.Is(err, backend.ErrUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error:   http.StatusText(httpStatus),
		Code:    code,
		Details: backend.Detail(err),
	})
}

func boolPtr(b bool) *bool {
	return &b
}
