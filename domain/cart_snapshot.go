package domain

import "strings"

type Address struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

// IsComplete reports whether the address can be shipped to. A blank address_1
// counts as no address at all.
func (a *Address) IsComplete() bool {
	return a != nil && strings.TrimSpace(a.Address1) != ""
}

// Country returns the normalized (lower-case) ISO country code, or "" when unknown.
func (a *Address) Country() string {
	if a == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(a.CountryCode))
}

type ShippingMethod struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ShippingOptionID string  `json:"shipping_option_id"`
	Amount           float64 `json:"amount"`
}

type PaymentCollection struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type LineItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type Promotion struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type GiftCard struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// CartSnapshot is the cart as observed on a single request. It is owned by the
// commerce backend and never stored here.
type CartSnapshot struct {
	ID                string             `json:"id"`
	RegionID          string             `json:"region_id,omitempty"`
	CurrencyCode      string             `json:"currency_code"`
	Email             string             `json:"email"`
	ShippingAddress   *Address           `json:"shipping_address"`
	ShippingMethods   []ShippingMethod   `json:"shipping_methods"`
	PaymentCollection *PaymentCollection `json:"payment_collection"`
	Items             []LineItem         `json:"items"`
	Promotions        []Promotion        `json:"promotions"`
	GiftCards         []GiftCard         `json:"gift_cards"`
	Total             float64            `json:"total"`
}

func (c *CartSnapshot) HasEmail() bool {
	return c != nil && strings.TrimSpace(c.Email) != ""
}

func (c *CartSnapshot) HasShippingAddress() bool {
	return c != nil && c.ShippingAddress.IsComplete()
}

func (c *CartSnapshot) HasShippingMethod() bool {
	return c != nil && len(c.ShippingMethods) > 0
}

// IsFullyCovered reports whether promotions or gift cards bring the total to
// zero, which counts as paid even without a payment collection.
func (c *CartSnapshot) IsFullyCovered() bool {
	if c == nil {
		return false
	}
	return c.Total == 0 && (len(c.GiftCards) > 0 || len(c.Promotions) > 0)
}

func (c *CartSnapshot) IsPaymentSettled() bool {
	if c == nil {
		return false
	}
	return c.PaymentCollection != nil || c.IsFullyCovered()
}
