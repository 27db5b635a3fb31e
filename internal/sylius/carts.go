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

// pageLimit is the page size requested when listing carts.
const pageLimit = 100

// Carts implements adapter.CartResource over /api/v1/carts.
type Carts struct {
	client *Client
}

var _ adapter.CartResource = (*Carts)(nil)

// Get fetches a cart by numeric id or token value.
func (r *Carts) Get(ctx context.Context, identifier string) (*model.RemoteCart, error) {
	if identifier == "" {
		return nil, model.NewNotFoundError("cart")
	}
	var sc syliusCart
	if err := r.client.do(ctx, "carts.get", http.MethodGet, "/carts/"+url.PathEscape(identifier), nil, &sc, "cart"); err != nil {
		return nil, err
	}
	return toRemoteCart(&sc), nil
}

// Add creates an empty cart for customerEmail in the configured channel.
func (r *Carts) Add(ctx context.Context, customerEmail string) (*model.RemoteCart, error) {
	if customerEmail == "" {
		return nil, model.NewValidationError("customer", "email is required")
	}
	body := createCartRequest{
		Customer:   customerEmail,
		Channel:    r.client.channel,
		LocaleCode: r.client.locale,
	}
	var sc syliusCart
	if err := r.client.do(ctx, "carts.add", http.MethodPost, "/carts/", body, &sc, "cart"); err != nil {
		return nil, err
	}
	cart := toRemoteCart(&sc)
	if cart.CustomerEmail == "" {
		cart.CustomerEmail = customerEmail
	}
	return cart, nil
}

// Delete removes a cart. A missing cart reports false without error.
func (r *Carts) Delete(ctx context.Context, id string) (bool, error) {
	err := r.client.do(ctx, "carts.delete", http.MethodDelete, "/carts/"+url.PathEscape(id), nil, nil, "cart")
	if model.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAll lists carts matching filter, following pages until exhausted.
func (r *Carts) GetAll(ctx context.Context, filter model.CartFilter) ([]model.RemoteCart, error) {
	var carts []model.RemoteCart
	for page := 1; ; page++ {
		q := url.Values{}
		if filter.CustomerEmail != "" {
			q.Set("criteria[customer][searchOption]", "equal")
			q.Set("criteria[customer][searchPhrase]", filter.CustomerEmail)
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(pageLimit))

		var p cartPage
		if err := r.client.do(ctx, "carts.list", http.MethodGet, "/carts/?"+q.Encode(), nil, &p, "cart"); err != nil {
			return nil, fmt.Errorf("listing carts page %d: %w", page, err)
		}
		for i := range p.Embedded.Items {
			carts = append(carts, *toRemoteCart(&p.Embedded.Items[i]))
		}
		if page >= p.Pages || len(p.Embedded.Items) == 0 {
			return carts, nil
		}
	}
}
