package domain

// MerchantValidationRequest carries the validation URL handed to the page by
// the wallet sheet. The URL embeds a single-use capability for the payment
// network and must never be logged.
type MerchantValidationRequest struct {
	ValidationURL string `json:"validationURL"`
}

// MerchantSession is the payment network's response to merchant validation.
// It is opaque: the bytes are relayed to the device exactly as received.
type MerchantSession []byte

type WalletRail string

const (
	WalletRailApplePay  WalletRail = "apple_pay"
	WalletRailGooglePay WalletRail = "google_pay"
)

type RailState struct {
	Available  bool `json:"available"`
	ShowPrompt bool `json:"show_prompt"`
}

// WalletReadiness holds the per-rail capability flags for one page load.
// A rail missing from the map is unavailable.
type WalletReadiness map[WalletRail]RailState

func (w WalletReadiness) CanUse(rail WalletRail) bool {
	return w[rail].Available
}

// OrderConfirmation is what the backend hands back once a cart is completed.
type OrderConfirmation struct {
	OrderID      string  `json:"order_id"`
	DisplayID    int64   `json:"display_id,omitempty"`
	CartID       string  `json:"cart_id"`
	Email        string  `json:"email"`
	Total        float64 `json:"total"`
	CurrencyCode string  `json:"currency_code"`
}
