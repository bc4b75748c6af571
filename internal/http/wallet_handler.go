package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront-checkout/internal/preferences"
	"github.com/fjod/storefront-checkout/internal/wallet"
)

type ReadinessDetector interface {
	Start(ctx context.Context, cfg wallet.SessionConfig, device wallet.Device) *wallet.Detection
}

type WalletHandler struct {
	detector ReadinessDetector
	prefs    preferences.Store
	wait     time.Duration
	log      *slog.Logger
}

// NewWalletHandler builds the wallet endpoints. prefs may be nil, in which
// case no prompt was ever dismissed and dismissals cannot be stored.
func NewWalletHandler(detector ReadinessDetector, prefs preferences.Store, wait time.Duration, log *slog.Logger) *WalletHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WalletHandler{detector: detector, prefs: prefs, wait: wait, log: log}
}

// Readiness answers with whatever rails are ready within the wait budget. A
// rail still probing when the budget runs out is reported unavailable.
func (h *WalletHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	cfg := h.sessionConfig(r.Context(), r.Header.Get(sessionIDHeader))

	det := h.detector.Start(r.Context(), cfg, wallet.Device{UserAgent: r.UserAgent()})
	defer det.Cancel()

	ctx, cancel := context.WithTimeout(r.Context(), h.wait)
	defer cancel()

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, det.Wait(ctx))
}

func (h *WalletHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	rail, err := preferences.ParseRail(chi.URLParam(r, "rail"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_rail", err.Error())
		return
	}
	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header is required")
		return
	}
	if h.prefs == nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "preferences are not configured")
		return
	}

	if err := h.prefs.DismissPrompt(r.Context(), sessionID, rail); err != nil {
		h.log.Warn("failed to store prompt dismissal", slog.String("rail", string(rail)), slog.Any("error", err))
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "could not store preference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionConfig never fails: missing preferences only mean prompts are shown.
func (h *WalletHandler) sessionConfig(ctx context.Context, sessionID string) wallet.SessionConfig {
	if h.prefs == nil || sessionID == "" {
		return wallet.SessionConfig{}
	}
	cfg, err := h.prefs.SessionConfig(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, preferences.ErrNoSession) {
			h.log.Warn("failed to load wallet preferences", slog.Any("error", err))
		}
		return wallet.SessionConfig{}
	}
	return cfg
}
