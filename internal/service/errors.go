package service

import (
	"errors"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
)

var (
	ErrUnknownStep = errors.New("unknown checkout step")
	// ErrNoCustomer is returned by operations that need a signed-in customer.
	ErrNoCustomer = errors.New("no signed-in customer")
)

// IncompleteCheckoutError is returned when an order is submitted for a cart
// that cannot be placed yet. Step is where the customer should be sent.
type IncompleteCheckoutError struct {
	CartID string
	Step   domain.CheckoutStep
}

func (e *IncompleteCheckoutError) Error() string {
	return fmt.Sprintf("cart %s is not ready for order placement, continue at %s", e.CartID, e.Step)
}
