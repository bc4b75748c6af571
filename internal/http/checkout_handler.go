package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/service"
)

type CheckoutService interface {
	Step(ctx context.Context, cartID, requested string) (*service.StepView, error)
	CheckConsistency(ctx context.Context, cartID, token string) (*domain.MismatchReport, error)
	ReconcileCart(ctx context.Context, cartID, token string) (*domain.CartSnapshot, error)
	PlaceOrder(ctx context.Context, cartID string) (*domain.OrderConfirmation, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type ConsistencyResponse struct {
	Mismatch *domain.MismatchReport `json:"mismatch"`
}

func (h *CheckoutHandler) GetStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.checkout.Step(ctx, chi.URLParam(r, "cart_id"), r.URL.Query().Get("step"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) GetConsistency(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.checkout.CheckConsistency(ctx, chi.URLParam(r, "cart_id"), getBearerToken(r.Context()))
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ConsistencyResponse{Mismatch: report})
}

func (h *CheckoutHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.checkout.ReconcileCart(ctx, chi.URLParam(r, "cart_id"), getBearerToken(r.Context()))
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.checkout.PlaceOrder(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) handleError(w http.ResponseWriter, err error) {
	var incomplete *service.IncompleteCheckoutError
	switch {
	case errors.As(err, &incomplete):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error: "checkout is not complete",
			Code:  "checkout_incomplete",
			Step:  incomplete.Step.String(),
		})
	case errors.Is(err, service.ErrUnknownStep):
		respondError(w, http.StatusBadRequest, "invalid_step", err.Error())
	case errors.Is(err, service.ErrNoCustomer):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "sign in to reconcile the cart")
	default:
		handleBackendError(w, err)
	}
}
