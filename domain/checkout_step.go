package domain

import "fmt"

type CheckoutStep string

const (
	CheckoutStepAddress  CheckoutStep = "address"
	CheckoutStepDelivery CheckoutStep = "delivery"
	CheckoutStepPayment  CheckoutStep = "payment"
	CheckoutStepReview   CheckoutStep = "review"
)

// CheckoutSteps lists every step in checkout order.
var CheckoutSteps = []CheckoutStep{
	CheckoutStepAddress,
	CheckoutStepDelivery,
	CheckoutStepPayment,
	CheckoutStepReview,
}

func ParseCheckoutStep(s string) (CheckoutStep, error) {
	switch step := CheckoutStep(s); step {
	case CheckoutStepAddress, CheckoutStepDelivery, CheckoutStepPayment, CheckoutStepReview:
		return step, nil
	default:
		return "", fmt.Errorf("unknown checkout step %q", s)
	}
}

// Position is the zero-based index of the step in checkout order.
func (s CheckoutStep) Position() int {
	switch s {
	case CheckoutStepAddress:
		return 0
	case CheckoutStepDelivery:
		return 1
	case CheckoutStepPayment:
		return 2
	case CheckoutStepReview:
		return 3
	default:
		panic(fmt.Sprintf("domain: unhandled checkout step %q", string(s)))
	}
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}

// ResolveStep derives the active checkout step from cart state. First match wins:
// address and email, then a shipping method, then payment. Review is never
// derived here; see SelectStep.
func ResolveStep(cart *CartSnapshot) CheckoutStep {
	switch {
	case !cart.HasShippingAddress() || !cart.HasEmail():
		return CheckoutStepAddress
	case !cart.HasShippingMethod():
		return CheckoutStepDelivery
	default:
		return CheckoutStepPayment
	}
}

// SelectStep applies an explicitly requested step on top of the resolved one.
// Earlier steps stay reachable so the customer can edit them, review is only
// reachable once the order could be placed, and anything past the resolved
// step falls back to it.
func SelectStep(cart *CartSnapshot, requested CheckoutStep) CheckoutStep {
	resolved := ResolveStep(cart)
	if requested == "" {
		return resolved
	}
	if requested == CheckoutStepReview {
		if resolved == CheckoutStepPayment && CanPlaceOrder(cart) {
			return CheckoutStepReview
		}
		return resolved
	}
	if requested.Position() <= resolved.Position() {
		return requested
	}
	return resolved
}

// CanPlaceOrder is the last check before submitting an order. It must be
// evaluated against a freshly loaded cart: the backend may have dropped a
// shipping method since the step was resolved.
func CanPlaceOrder(cart *CartSnapshot) bool {
	return cart.HasShippingAddress() &&
		cart.HasShippingMethod() &&
		cart.IsPaymentSettled()
}
