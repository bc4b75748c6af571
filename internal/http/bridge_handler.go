package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/bridge"
)

type MerchantValidator interface {
	ValidateMerchant(ctx context.Context, validationURL string) (domain.MerchantSession, error)
	RefuseRequest(ctx context.Context, err error) *bridge.Error
}

type BridgeHandler struct {
	bridge      MerchantValidator
	maxBodySize int64
	log         *slog.Logger
}

func NewBridgeHandler(b MerchantValidator, maxBodySize int64, log *slog.Logger) *BridgeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BridgeHandler{bridge: b, maxBodySize: maxBodySize, log: log}
}

// ValidateMerchant handles POST /api/apple-pay/validate-merchant. The session
// is written back byte for byte.
func (h *BridgeHandler) ValidateMerchant(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req domain.MerchantValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBridgeError(w, h.bridge.RefuseRequest(r.Context(), err), "invalid JSON body")
		return
	}

	session, err := h.bridge.ValidateMerchant(r.Context(), req.ValidationURL)
	if errors.Is(err, bridge.ErrClientGone) {
		// Nobody is listening. A deadline is answered by the timeout middleware.
		h.log.Debug("merchant validation abandoned", slog.String("request_id", getRequestID(r.Context())))
		return
	}
	if err != nil {
		var be *bridge.Error
		if !errors.As(err, &be) {
			be = &bridge.Error{Kind: bridge.KindUnavailable, Err: err}
		}
		respondBridgeError(w, be, "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(session); err != nil {
		h.log.Debug("failed to write merchant session", slog.Any("error", err))
	}
}

func respondBridgeError(w http.ResponseWriter, be *bridge.Error, message string) {
	var status int
	details := be.Detail
	switch be.Kind {
	case bridge.KindInvalidRequest:
		status = http.StatusBadRequest
		if message == "" {
			message = be.Err.Error()
		}
	case bridge.KindRejected:
		status = http.StatusBadGateway
		message = "merchant validation was rejected"
	default:
		status = http.StatusServiceUnavailable
		message = "merchant validation is temporarily unavailable"
		if details == "" {
			details = unavailableDetail(be.Err)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      string(be.Kind),
		Details:   details,
		Kind:      string(be.Kind),
		Retryable: boolPtr(be.Retryable()),
	})
}

func unavailableDetail(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "commerce backend timed out"
	default:
		return "commerce backend unreachable"
	}
}
