package wallet

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront-checkout/domain"
)

// Device describes the browsing context a detection runs for.
type Device struct {
	UserAgent string
}

// Probe answers whether one wallet rail can be offered to a device.
type Probe interface {
	Rail() domain.WalletRail
	Probe(ctx context.Context, device Device) (bool, error)
}

// ApplePayProbe is a local capability check. It never blocks.
type ApplePayProbe struct {
	Enabled bool
}

func (p ApplePayProbe) Rail() domain.WalletRail {
	return domain.WalletRailApplePay
}

// Probe allows every browser on iOS, which all run on WebKit. On a Mac only
// Safari exposes the payment sheet.
func (p ApplePayProbe) Probe(_ context.Context, device Device) (bool, error) {
	if !p.Enabled {
		return false, nil
	}
	ua := device.UserAgent
	if strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") {
		return true, nil
	}
	if !strings.Contains(ua, "Macintosh") || !strings.Contains(ua, "Safari/") {
		return false, nil
	}
	for _, other := range []string{"Chrome/", "Chromium/", "Firefox/", "Edg/", "OPR/"} {
		if strings.Contains(ua, other) {
			return false, nil
		}
	}
	return true, nil
}

// GooglePayProbe reports the rail ready once the payment script it depends on
// can be loaded.
type GooglePayProbe struct {
	Enabled    bool
	ScriptURL  string
	HTTPClient *http.Client
}

func NewGooglePayProbe(enabled bool, scriptURL string) *GooglePayProbe {
	return &GooglePayProbe{
		Enabled:    enabled,
		ScriptURL:  scriptURL,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (p *GooglePayProbe) Rail() domain.WalletRail {
	return domain.WalletRailGooglePay
}

func (p *GooglePayProbe) Probe(ctx context.Context, _ Device) (bool, error) {
	if !p.Enabled || p.ScriptURL == "" {
		return false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.ScriptURL, nil)
	if err != nil {
		return false, fmt.Errorf("build script request: %w", err)
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("load script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("load script: status %d", resp.StatusCode)
	}
	return true, nil
}
