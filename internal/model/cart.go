// Package model contains the platform-neutral cart snapshots, views and error
// types shared by the remote client, the cart facade and the HTTP surfaces.
package model

import (
	"sort"
	"strconv"
)

// RemoteCart is a read-only snapshot of a cart held by the remote platform.
// It goes stale after any mutation and must be re-fetched explicitly.
type RemoteCart struct {
	ID            int              `json:"id"`
	Token         string           `json:"token"`
	CustomerEmail string           `json:"customer_email,omitempty"` // Empty when the remote has no customer
	Items         []RemoteCartItem `json:"items"`
	ItemsTotal    int64            `json:"items_total"` // Minor units, as reported by remote
	Total         int64            `json:"total"`       // Minor units incl. adjustments
	CurrencyCode  string           `json:"currency_code,omitempty"`
	LocaleCode    string           `json:"locale_code,omitempty"`
	Channel       string           `json:"channel,omitempty"`
	CheckoutState string           `json:"checkout_state,omitempty"`
}

// Identifier returns the handle used for token-addressed remote calls.
// Falls back to the numeric id for carts created without a token.
func (c *RemoteCart) Identifier() string {
	if c.Token != "" {
		return c.Token
	}
	return strconv.Itoa(c.ID)
}

// RemoteCartItem is one line of a remote cart.
// At most one item per variant per cart is assumed; nothing enforces it here.
type RemoteCartItem struct {
	ID        int    `json:"id"`
	CartID    int    `json:"cart_id"`
	CartToken string `json:"cart_token,omitempty"`
	Variant   string `json:"variant"` // Product variant code
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // Minor units
	Total     int64  `json:"total"`      // Minor units
}

// ItemsByVariant keys the cart's lines by variant code.
// A later line for the same variant overwrites an earlier one.
func ItemsByVariant(cart *RemoteCart) map[string]RemoteCartItem {
	items := make(map[string]RemoteCartItem)
	if cart == nil {
		return items
	}
	for _, item := range cart.Items {
		if item.CartID == 0 {
			item.CartID = cart.ID
		}
		if item.CartToken == "" {
			item.CartToken = cart.Token
		}
		items[item.Variant] = item
	}
	return items
}

// SortedItems returns the map's values ordered by variant code.
func SortedItems(items map[string]RemoteCartItem) []RemoteCartItem {
	list := make([]RemoteCartItem, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Variant < list[j].Variant })
	return list
}

// CartFilter narrows a remote cart listing.
// Only exact customer email matching is supported by the storefront.
type CartFilter struct {
	CustomerEmail string
}

// === Storefront response views ===

// CartView is the JSON shape returned to storefront callers.
type CartView struct {
	ID            int            `json:"id"`
	Token         string         `json:"token"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	Items         []CartItemView `json:"items"`
	ItemCount     int            `json:"item_count"`
	TotalPrice    float64        `json:"total_price"`
	CurrencyCode  string         `json:"currency_code,omitempty"`
}

// CartItemView is a single line in CartView.
type CartItemView struct {
	ID        int     `json:"id"`
	Variant   string  `json:"variant"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// CartSummary backs cheap header/badge rendering.
// ItemCount comes from the session cache and may lag behind the remote cart.
type CartSummary struct {
	HasCart    bool    `json:"has_cart"`
	ItemCount  int     `json:"item_count"`
	TotalPrice float64 `json:"total_price"`
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	Variant  string `json:"variant" validate:"required,max=255"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// AddItemResponse returns the touched line plus the refreshed cart.
type AddItemResponse struct {
	Item CartItemView `json:"item"`
	Cart CartView     `json:"cart"`
}

// NewItemView converts a remote line into its storefront view.
func NewItemView(item RemoteCartItem) CartItemView {
	return CartItemView{
		ID:        item.ID,
		Variant:   item.Variant,
		Quantity:  item.Quantity,
		UnitPrice: MinorToMajor(item.UnitPrice),
		Total:     MinorToMajor(item.Total),
	}
}
