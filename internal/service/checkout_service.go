package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/backend"
	"github.com/fjod/storefront-checkout/pkg/logger"
)

// CommerceBackend is the part of the commerce API checkout depends on.
type CommerceBackend interface {
	GetCart(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
	GetCustomer(ctx context.Context, token string) (*domain.Customer, error)
	UpdateCartEmail(ctx context.Context, cartID, email string) (*domain.CartSnapshot, error)
	CompleteCart(ctx context.Context, cartID string) (*domain.OrderConfirmation, error)
}

// EventPublisher announces checkout events. Publishing is best effort and
// never fails the operation that triggered it.
type EventPublisher interface {
	OrderSubmitted(ctx context.Context, order *domain.OrderConfirmation) error
	CartMismatch(ctx context.Context, report *domain.MismatchReport) error
}

type StepView struct {
	CartID        string              `json:"cart_id"`
	Step          domain.CheckoutStep `json:"step"`
	CanPlaceOrder bool                `json:"can_place_order"`
}

type CheckoutService struct {
	backend   CommerceBackend
	publisher EventPublisher
	log       *slog.Logger
}

func NewCheckoutService(backend CommerceBackend, publisher EventPublisher, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{backend: backend, publisher: publisher, log: log}
}

// Step resolves the checkout step of the cart as it is right now. requested is
// the step the customer navigated to, empty when none.
func (s *CheckoutService) Step(ctx context.Context, cartID, requested string) (*StepView, error) {
	var want domain.CheckoutStep
	if requested != "" {
		step, err := domain.ParseCheckoutStep(requested)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStep, requested)
		}
		want = step
	}

	cart, err := s.backend.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	return &StepView{
		CartID:        cartID,
		Step:          domain.SelectStep(cart, want),
		CanPlaceOrder: domain.CanPlaceOrder(cart),
	}, nil
}

// CheckConsistency loads the cart and the customer behind token concurrently
// and compares them once both have arrived. An anonymous session yields no
// report.
func (s *CheckoutService) CheckConsistency(ctx context.Context, cartID, token string) (*domain.MismatchReport, error) {
	var (
		cart     *domain.CartSnapshot
		customer *domain.Customer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.backend.GetCart(gctx, cartID)
		if err != nil {
			return err
		}
		cart = c
		return nil
	})
	g.Go(func() error {
		c, err := s.backend.GetCustomer(gctx, token)
		if errors.Is(err, backend.ErrUnauthenticated) {
			return nil
		}
		if err != nil {
			return err
		}
		customer = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := domain.CheckConsistency(customer, cart)
	if report == nil {
		return nil, nil
	}

	log := logger.WithTrace(ctx, s.log)
	log.Info("cart does not match customer",
		slog.String("cart_id", report.CartID),
		slog.String("customer_id", report.CustomerID),
		slog.Any("reasons", report.Reasons))
	if err := s.publisher.CartMismatch(ctx, report); err != nil {
		log.Warn("failed to publish cart mismatch", slog.String("cart_id", cartID), slog.Any("error", err))
	}
	return report, nil
}

// ReconcileCart copies the signed-in customer's email onto the cart. Addresses
// are left to the customer to pick.
func (s *CheckoutService) ReconcileCart(ctx context.Context, cartID, token string) (*domain.CartSnapshot, error) {
	customer, err := s.backend.GetCustomer(ctx, token)
	if errors.Is(err, backend.ErrUnauthenticated) {
		return nil, ErrNoCustomer
	}
	if err != nil {
		return nil, err
	}
	if customer.Email == "" {
		return s.backend.GetCart(ctx, cartID)
	}
	return s.backend.UpdateCartEmail(ctx, cartID, customer.Email)
}

// PlaceOrder reloads the cart and submits it only if it can be placed. A cart
// that cannot is refused with an IncompleteCheckoutError without asking the
// backend to complete it.
func (s *CheckoutService) PlaceOrder(ctx context.Context, cartID string) (*domain.OrderConfirmation, error) {
	log := logger.WithTrace(ctx, s.log).With(slog.String("cart_id", cartID))

	cart, err := s.backend.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !domain.CanPlaceOrder(cart) {
		step := domain.ResolveStep(cart)
		log.Info("order placement refused", slog.String("step", step.String()))
		return nil, &IncompleteCheckoutError{CartID: cartID, Step: step}
	}

	order, err := s.backend.CompleteCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	log.Info("order placed", slog.String("order_id", order.OrderID))

	if err := s.publisher.OrderSubmitted(ctx, order); err != nil {
		log.Warn("failed to publish order submitted", slog.Any("error", err))
	}
	return order, nil
}
