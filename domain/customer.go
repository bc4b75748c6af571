package domain

import "strings"

// Customer is the authenticated shopper as reported by the identity service.
type Customer struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	BillingAddress    *Address  `json:"billing_address,omitempty"`
	ShippingAddresses []Address `json:"shipping_addresses"`
}

// ShippingCountries returns the set of normalized country codes the customer
// has saved shipping addresses for.
func (c *Customer) ShippingCountries() map[string]struct{} {
	countries := make(map[string]struct{})
	if c == nil {
		return countries
	}
	for i := range c.ShippingAddresses {
		if code := c.ShippingAddresses[i].Country(); code != "" {
			countries[code] = struct{}{}
		}
	}
	return countries
}

type MismatchReason string

const (
	MismatchReasonCountry MismatchReason = "shipping_country_unknown"
	MismatchReasonEmail   MismatchReason = "email_differs"
)

// MismatchReport describes why a cart does not line up with the signed-in customer.
type MismatchReport struct {
	CartID        string           `json:"cart_id"`
	CustomerID    string           `json:"customer_id"`
	Reasons       []MismatchReason `json:"reasons"`
	CartCountry   string           `json:"cart_country,omitempty"`
	CartEmail     string           `json:"cart_email,omitempty"`
	CustomerEmail string           `json:"customer_email,omitempty"`
}

func (r *MismatchReport) Has(reason MismatchReason) bool {
	if r == nil {
		return false
	}
	for _, rr := range r.Reasons {
		if rr == reason {
			return true
		}
	}
	return false
}

// CheckConsistency compares a cart with the customer that now owns the session.
// It returns nil unless both are present and they disagree. The cart is never
// modified.
func CheckConsistency(customer *Customer, cart *CartSnapshot) *MismatchReport {
	if customer == nil || cart == nil {
		return nil
	}

	var reasons []MismatchReason

	// An empty set of saved countries cannot contain the cart's country.
	if country := cart.ShippingAddress.Country(); country != "" {
		if _, ok := customer.ShippingCountries()[country]; !ok {
			reasons = append(reasons, MismatchReasonCountry)
		}
	}

	// A cart without an email still differs from the customer's.
	cartEmail := strings.TrimSpace(cart.Email)
	customerEmail := strings.TrimSpace(customer.Email)
	if customerEmail != "" && !strings.EqualFold(cartEmail, customerEmail) {
		reasons = append(reasons, MismatchReasonEmail)
	}

	if len(reasons) == 0 {
		return nil
	}

	return &MismatchReport{
		CartID:        cart.ID,
		CustomerID:    customer.ID,
		Reasons:       reasons,
		CartCountry:   cart.ShippingAddress.Country(),
		CartEmail:     cartEmail,
		CustomerEmail: customerEmail,
	}
}
