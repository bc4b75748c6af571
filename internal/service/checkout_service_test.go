package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/backend"
	"github.com/fjod/storefront-checkout/pkg/logger"
)

func readyCart() *domain.CartSnapshot {
	return &domain.CartSnapshot{
		ID:                "cart_1",
		CurrencyCode:      "eur",
		Email:             "a@b.com",
		ShippingAddress:   &domain.Address{Address1: "12 Elm", CountryCode: "DK"},
		ShippingMethods:   []domain.ShippingMethod{{ID: "sm_1"}},
		PaymentCollection: &domain.PaymentCollection{ID: "pc_1"},
		Total:             120,
	}
}

func newService(b *MockBackend, p *MockPublisher) *CheckoutService {
	return NewCheckoutService(b, p, logger.Discard())
}

func TestStep_ResolvesFromCurrentCart(t *testing.T) {
	cart := readyCart()
	cart.ShippingMethods = nil
	svc := newService(&MockBackend{Cart: cart}, &MockPublisher{})

	view, err := svc.Step(context.Background(), "cart_1", "")

	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepDelivery, view.Step)
	assert.False(t, view.CanPlaceOrder)
}

func TestStep_ReviewOnlyWhenPlaceable(t *testing.T) {
	svc := newService(&MockBackend{Cart: readyCart()}, &MockPublisher{})

	view, err := svc.Step(context.Background(), "cart_1", "review")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepReview, view.Step)
	assert.True(t, view.CanPlaceOrder)

	unpaid := readyCart()
	unpaid.PaymentCollection = nil
	svc = newService(&MockBackend{Cart: unpaid}, &MockPublisher{})

	view, err = svc.Step(context.Background(), "cart_1", "review")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepPayment, view.Step)
}

func TestStep_UnknownStep(t *testing.T) {
	b := &MockBackend{Cart: readyCart()}
	svc := newService(b, &MockPublisher{})

	_, err := svc.Step(context.Background(), "cart_1", "shipping")

	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, 0, b.GetCartCalls)
}

func TestStep_BackendError(t *testing.T) {
	svc := newService(&MockBackend{CartErr: fmt.Errorf("get cart: %w", backend.ErrNotFound)}, &MockPublisher{})

	_, err := svc.Step(context.Background(), "cart_1", "")

	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestCheckConsistency_AnonymousSessionIsNotAMismatch(t *testing.T) {
	cart := readyCart()
	cart.ShippingAddress.CountryCode = "zz"
	pub := &MockPublisher{}
	svc := newService(&MockBackend{Cart: cart, CustomerErr: backend.ErrUnauthenticated}, pub)

	report, err := svc.CheckConsistency(context.Background(), "cart_1", "")

	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, pub.Mismatches)
}

func TestCheckConsistency_WaitsForBothLoads(t *testing.T) {
	customer := &domain.Customer{
		ID:                "cus_1",
		Email:             "other@b.com",
		ShippingAddresses: []domain.Address{{Address1: "1 Main", CountryCode: "se"}},
	}

	tests := []struct {
		name          string
		cartDelay     time.Duration
		customerDelay time.Duration
	}{
		{name: "cart first", customerDelay: 20 * time.Millisecond},
		{name: "customer first", cartDelay: 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &MockPublisher{}
			b := &MockBackend{
				Cart:          readyCart(),
				CartDelay:     tt.cartDelay,
				Customer:      customer,
				CustomerDelay: tt.customerDelay,
			}
			svc := newService(b, pub)

			report, err := svc.CheckConsistency(context.Background(), "cart_1", "tok")

			require.NoError(t, err)
			require.NotNil(t, report)
			assert.True(t, report.Has(domain.MismatchReasonCountry))
			assert.True(t, report.Has(domain.MismatchReasonEmail))
			assert.Equal(t, "tok", b.ReceivedToken)
			assert.Len(t, pub.Mismatches, 1)
		})
	}
}

func TestCheckConsistency_Match(t *testing.T) {
	customer := &domain.Customer{
		ID:                "cus_1",
		Email:             "A@B.com",
		ShippingAddresses: []domain.Address{{Address1: "12 Elm", CountryCode: "dk"}},
	}
	pub := &MockPublisher{}
	svc := newService(&MockBackend{Cart: readyCart(), Customer: customer}, pub)

	report, err := svc.CheckConsistency(context.Background(), "cart_1", "tok")

	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, pub.Mismatches)
}

func TestCheckConsistency_PublishFailureIsIgnored(t *testing.T) {
	customer := &domain.Customer{ID: "cus_1", Email: "other@b.com"}
	pub := &MockPublisher{Err: errors.New("broker down")}
	svc := newService(&MockBackend{Cart: readyCart(), Customer: customer}, pub)

	report, err := svc.CheckConsistency(context.Background(), "cart_1", "tok")

	require.NoError(t, err)
	assert.True(t, report.Has(domain.MismatchReasonEmail))
}

func TestCheckConsistency_LoadFailure(t *testing.T) {
	svc := newService(&MockBackend{
		Cart:        readyCart(),
		CustomerErr: fmt.Errorf("get customer: %w", backend.ErrUnavailable),
	}, &MockPublisher{})

	_, err := svc.CheckConsistency(context.Background(), "cart_1", "tok")

	assert.ErrorIs(t, err, backend.ErrUnavailable)
}

func TestReconcileCart_CopiesCustomerEmail(t *testing.T) {
	b := &MockBackend{Cart: readyCart(), Customer: &domain.Customer{ID: "cus_1", Email: "new@b.com"}}
	svc := newService(b, &MockPublisher{})

	cart, err := svc.ReconcileCart(context.Background(), "cart_1", "tok")

	require.NoError(t, err)
	assert.Equal(t, "new@b.com", b.UpdatedEmail)
	assert.Equal(t, "new@b.com", cart.Email)
}

func TestReconcileCart_RequiresCustomer(t *testing.T) {
	b := &MockBackend{Cart: readyCart(), CustomerErr: backend.ErrUnauthenticated}
	svc := newService(b, &MockPublisher{})

	_, err := svc.ReconcileCart(context.Background(), "cart_1", "")

	assert.ErrorIs(t, err, ErrNoCustomer)
	assert.Empty(t, b.UpdatedEmail)
}

func TestPlaceOrder_Success(t *testing.T) {
	order := &domain.OrderConfirmation{OrderID: "order_1", CartID: "cart_1"}
	pub := &MockPublisher{}
	b := &MockBackend{Cart: readyCart(), Order: order}
	svc := newService(b, pub)

	got, err := svc.PlaceOrder(context.Background(), "cart_1")

	require.NoError(t, err)
	assert.Equal(t, order, got)
	assert.Equal(t, 1, b.GetCartCalls)
	assert.Equal(t, 1, b.CompleteCalls)
	assert.Equal(t, []*domain.OrderConfirmation{order}, pub.Orders)
}

func TestPlaceOrder_FullyCoveredCart(t *testing.T) {
	cart := readyCart()
	cart.PaymentCollection = nil
	cart.Total = 0
	cart.GiftCards = []domain.GiftCard{{ID: "gc_1"}}
	b := &MockBackend{Cart: cart, Order: &domain.OrderConfirmation{OrderID: "order_1"}}
	svc := newService(b, &MockPublisher{})

	_, err := svc.PlaceOrder(context.Background(), "cart_1")

	require.NoError(t, err)
	assert.Equal(t, 1, b.CompleteCalls)
}

func TestPlaceOrder_RefusedWithoutBackendCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CartSnapshot)
		step   domain.CheckoutStep
	}{
		{
			name:   "shipping method removed",
			mutate: func(c *domain.CartSnapshot) { c.ShippingMethods = nil },
			step:   domain.CheckoutStepDelivery,
		},
		{
			name:   "no address",
			mutate: func(c *domain.CartSnapshot) { c.ShippingAddress = nil },
			step:   domain.CheckoutStepAddress,
		},
		{
			name:   "unpaid",
			mutate: func(c *domain.CartSnapshot) { c.PaymentCollection = nil },
			step:   domain.CheckoutStepPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := readyCart()
			tt.mutate(cart)
			pub := &MockPublisher{}
			b := &MockBackend{Cart: cart}
			svc := newService(b, pub)

			_, err := svc.PlaceOrder(context.Background(), "cart_1")

			var incomplete *IncompleteCheckoutError
			require.True(t, errors.As(err, &incomplete))
			assert.Equal(t, tt.step, incomplete.Step)
			assert.Equal(t, 0, b.CompleteCalls)
			assert.Empty(t, pub.Orders)
		})
	}
}

func TestPlaceOrder_BackendRefusal(t *testing.T) {
	b := &MockBackend{Cart: readyCart(), CompleteErr: fmt.Errorf("complete cart: %w", backend.ErrRejected)}
	pub := &MockPublisher{}
	svc := newService(b, pub)

	_, err := svc.PlaceOrder(context.Background(), "cart_1")

	assert.ErrorIs(t, err, backend.ErrRejected)
	assert.Empty(t, pub.Orders)
}

func TestPlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	b := &MockBackend{Cart: readyCart(), Order: &domain.OrderConfirmation{OrderID: "order_1"}}
	svc := newService(b, &MockPublisher{Err: errors.New("broker down")})

	got, err := svc.PlaceOrder(context.Background(), "cart_1")

	require.NoError(t, err)
	assert.Equal(t, "order_1", got.OrderID)
}
