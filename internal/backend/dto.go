package backend

import "github.com/fjod/storefront-checkout/domain"

type cartEnvelope struct {
	Cart *domain.CartSnapshot `json:"cart"`
}

type addressDTO struct {
	domain.Address
	IsDefaultShipping bool `json:"is_default_shipping"`
	IsDefaultBilling  bool `json:"is_default_billing"`
}

type customerDTO struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Addresses []addressDTO `json:"addresses"`
}

type customerEnvelope struct {
	Customer *customerDTO `json:"customer"`
}

func (c *customerDTO) toDomain() *domain.Customer {
	out := &domain.Customer{
		ID:                c.ID,
		Email:             c.Email,
		ShippingAddresses: make([]domain.Address, 0, len(c.Addresses)),
	}
	for _, a := range c.Addresses {
		out.ShippingAddresses = append(out.ShippingAddresses, a.Address)
		if a.IsDefaultBilling && out.BillingAddress == nil {
			billing := a.Address
			out.BillingAddress = &billing
		}
	}
	return out
}

type updateCartRequest struct {
	Email string `json:"email"`
}

type orderDTO struct {
	ID           string  `json:"id"`
	DisplayID    int64   `json:"display_id"`
	Email        string  `json:"email"`
	Total        float64 `json:"total"`
	CurrencyCode string  `json:"currency_code"`
}

type completeErrorDTO struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// completeResponse is either {"type":"order","order":...} or
// {"type":"cart","cart":...,"error":...} when the backend refuses.
type completeResponse struct {
	Type  string               `json:"type"`
	Order *orderDTO            `json:"order"`
	Cart  *domain.CartSnapshot `json:"cart"`
	Error *completeErrorDTO    `json:"error"`
}

type validateMerchantRequest struct {
	ValidationURL string `json:"validationURL"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
