package service

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/storefront-checkout/domain"
)

// MockBackend implements CommerceBackend for testing
type MockBackend struct {
	mu sync.Mutex

	Cart        *domain.CartSnapshot
	CartErr     error
	CartDelay   time.Duration
	Customer    *domain.Customer
	CustomerErr error
	// CustomerDelay lets tests control which load finishes first
	CustomerDelay time.Duration
	UpdateErr     error
	Order         *domain.OrderConfirmation
	CompleteErr   error

	GetCartCalls  int
	CompleteCalls int
	UpdatedEmail  string
	ReceivedToken string
}

func (m *MockBackend) GetCart(ctx context.Context, _ string) (*domain.CartSnapshot, error) {
	m.mu.Lock()
	m.GetCartCalls++
	m.mu.Unlock()
	if err := sleep(ctx, m.CartDelay); err != nil {
		return nil, err
	}
	return m.Cart, m.CartErr
}

func (m *MockBackend) GetCustomer(ctx context.Context, token string) (*domain.Customer, error) {
	m.mu.Lock()
	m.ReceivedToken = token
	m.mu.Unlock()
	if err := sleep(ctx, m.CustomerDelay); err != nil {
		return nil, err
	}
	return m.Customer, m.CustomerErr
}

func (m *MockBackend) UpdateCartEmail(_ context.Context, _ string, email string) (*domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdatedEmail = email
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	updated := *m.Cart
	updated.Email = email
	return &updated, nil
}

func (m *MockBackend) CompleteCart(_ context.Context, _ string) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++
	return m.Order, m.CompleteErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MockPublisher implements EventPublisher for testing
type MockPublisher struct {
	Err        error
	Orders     []*domain.OrderConfirmation
	Mismatches []*domain.MismatchReport
}

func (m *MockPublisher) OrderSubmitted(_ context.Context, order *domain.OrderConfirmation) error {
	m.Orders = append(m.Orders, order)
	return m.Err
}

func (m *MockPublisher) CartMismatch(_ context.Context, report *domain.MismatchReport) error {
	m.Mismatches = append(m.Mismatches, report)
	return m.Err
}
