// Package sylius implements the cart adapters against the Sylius admin API (v1).
// Wire types, HTTP plumbing and transforms into model types live here.
package sylius

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// === Sylius API Response Types ===

// syliusCart is a cart (an order in "cart" state) as returned by /carts.
type syliusCart struct {
	ID            int              `json:"id"`
	TokenValue    string           `json:"tokenValue"`
	Customer      *syliusCustomer  `json:"customer,omitempty"`
	Channel       *syliusChannel   `json:"channel,omitempty"`
	Items         []syliusCartItem `json:"items"`
	ItemsTotal    int64            `json:"itemsTotal"`
	Total         int64            `json:"total"`
	CurrencyCode  string           `json:"currencyCode"`
	LocaleCode    string           `json:"localeCode"`
	CheckoutState string           `json:"checkoutState"`
}

type syliusCustomer struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

type syliusChannel struct {
	Code string `json:"code"`
}

// syliusCartItem is one order item. Quantity and prices are integers;
// prices are in minor units.
type syliusCartItem struct {
	ID        int        `json:"id"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unitPrice"`
	Total     int64      `json:"total"`
	Variant   variantRef `json:"variant"`
}

// variantRef accepts both a bare variant code and an embedded variant object.
// The admin API serializes the variant differently depending on the
// serialization group of the endpoint.
type variantRef struct {
	Code string
}

func (v *variantRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		v.Code = ""
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &v.Code)
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	v.Code = obj.Code
	return nil
}

func (v variantRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Code)
}

// cartPage is the HATEOAS paginated collection returned by GET /carts/.
type cartPage struct {
	Page     int `json:"page"`
	Limit    int `json:"limit"`
	Pages    int `json:"pages"`
	Total    int `json:"total"`
	Embedded struct {
		Items []syliusCart `json:"items"`
	} `json:"_embedded"`
}

// === Sylius API Request Types ===

type createCartRequest struct {
	Customer   string `json:"customer"`
	Channel    string `json:"channel"`
	LocaleCode string `json:"localeCode"`
}

type addItemRequest struct {
	Variant  string `json:"variant"`
	Quantity int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// syliusError is the FOSRest error body, or the OAuth error body on the
// token endpoint.
type syliusError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"` // OAuth endpoint
	Desc    string `json:"error_description"`
}
