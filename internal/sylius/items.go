package sylius

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cart-proxy/internal/adapter"
	"cart-proxy/internal/model"
)

// Items implements adapter.CartItemResource over /api/v1/carts/{cart}/items.
type Items struct {
	client *Client
}

var _ adapter.CartItemResource = (*Items)(nil)

// Add creates a line for item.Variant on item.CartID.
func (r *Items) Add(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	if item.CartID == 0 {
		return nil, model.NewValidationError("cart", "cart id is required")
	}
	body := addItemRequest{Variant: item.Variant, Quantity: item.Quantity}
	path := fmt.Sprintf("/carts/%d/items/", item.CartID)

	var si syliusCartItem
	if err := r.client.do(ctx, "items.add", http.MethodPost, path, body, &si, "cart item"); err != nil {
		return nil, err
	}
	created := toRemoteItem(&si)
	created.CartID = item.CartID
	created.CartToken = item.CartToken
	if created.Variant == "" {
		created.Variant = item.Variant
	}
	return &created, nil
}

// Update sets the quantity of line item.ID. The remote answers 204, so the
// returned item is the input with the new quantity.
func (r *Items) Update(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	body := updateItemRequest{Quantity: item.Quantity}
	path := fmt.Sprintf("/carts/%d/items/%d", item.CartID, item.ID)

	var si syliusCartItem
	if err := r.client.do(ctx, "items.update", http.MethodPut, path, body, &si, "cart item"); err != nil {
		return nil, err
	}
	updated := item
	if si.ID != 0 {
		updated.Quantity = si.Quantity
		updated.UnitPrice = si.UnitPrice
		updated.Total = si.Total
	}
	return &updated, nil
}

// Delete removes line itemID from the cart addressed by cartToken.
func (r *Items) Delete(ctx context.Context, itemID, cartToken string) (bool, error) {
	if _, err := strconv.Atoi(itemID); err != nil {
		return false, model.NewValidationError("item", "id must be numeric")
	}
	path := "/carts/" + url.PathEscape(cartToken) + "/items/" + itemID
	err := r.client.do(ctx, "items.delete", http.MethodDelete, path, nil, nil, "cart item")
	if model.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
