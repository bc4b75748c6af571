package http

import (
	"context"
	"sync"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/bridge"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/wallet"
)

type BridgeMock struct {
	session  domain.MerchantSession
	err      error
	calls    int
	received string
	refused  int
}

func (b *BridgeMock) ValidateMerchant(_ context.Context, validationURL string) (domain.MerchantSession, error) {
	b.calls++
	b.received = validationURL
	return b.session, b.err
}

func (b *BridgeMock) RefuseRequest(_ context.Context, err error) *bridge.Error {
	b.refused++
	return &bridge.Error{Kind: bridge.KindInvalidRequest, Err: err}
}

type OutcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *OutcomeRecorder) Observe(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type CheckoutMock struct {
	view     *service.StepView
	report   *domain.MismatchReport
	cart     *domain.CartSnapshot
	order    *domain.OrderConfirmation
	err      error
	token    string
	cartID   string
	stepWant string
}

func (c *CheckoutMock) Step(_ context.Context, cartID, requested string) (*service.StepView, error) {
	c.cartID = cartID
	c.stepWant = requested
	return c.view, c.err
}

func (c *CheckoutMock) CheckConsistency(_ context.Context, cartID, token string) (*domain.MismatchReport, error) {
	c.cartID = cartID
	c.token = token
	return c.report, c.err
}

func (c *CheckoutMock) ReconcileCart(_ context.Context, cartID, token string) (*domain.CartSnapshot, error) {
	c.cartID = cartID
	c.token = token
	return c.cart, c.err
}

func (c *CheckoutMock) PlaceOrder(_ context.Context, cartID string) (*domain.OrderConfirmation, error) {
	c.cartID = cartID
	return c.order, c.err
}

type StoreMock struct {
	mu        sync.Mutex
	cfg       wallet.SessionConfig
	err       error
	dismissed map[string][]domain.WalletRail
}

func (s *StoreMock) SessionConfig(context.Context, string) (wallet.SessionConfig, error) {
	return s.cfg, s.err
}

func (s *StoreMock) DismissPrompt(_ context.Context, sessionID string, rail domain.WalletRail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.dismissed == nil {
		s.dismissed = make(map[string][]domain.WalletRail)
	}
	s.dismissed[sessionID] = append(s.dismissed[sessionID], rail)
	return nil
}

type ProbeMock struct {
	rail      domain.WalletRail
	available bool
	block     bool
}

func (p ProbeMock) Rail() domain.WalletRail { return p.rail }

func (p ProbeMock) Probe(ctx context.Context, _ wallet.Device) (bool, error) {
	if p.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return p.available, nil
}
