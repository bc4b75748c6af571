package preferences

import (
	"context"
	"errors"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/wallet"
)

// Store keeps per-session wallet prompt preferences.
type Store interface {
	SessionConfig(ctx context.Context, sessionID string) (wallet.SessionConfig, error)
	DismissPrompt(ctx context.Context, sessionID string, rail domain.WalletRail) error
}

var (
	ErrNoSession   = errors.New("session id is required")
	ErrUnknownRail = errors.New("unknown wallet rail")
)

// ParseRail accepts only the rails checkout knows about.
func ParseRail(s string) (domain.WalletRail, error) {
	switch rail := domain.WalletRail(s); rail {
	case domain.WalletRailApplePay, domain.WalletRailGooglePay:
		return rail, nil
	default:
		return "", ErrUnknownRail
	}
}
