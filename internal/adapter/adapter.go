// Package adapter defines the collaborator interfaces for the remote cart platform.
// The cart facade and manager only talk to these; internal/sylius implements them over HTTP.
package adapter

import (
	"context"

	"cart-proxy/internal/model"
)

// CartResource abstracts the remote cart collection.
//
// Lookups that find nothing return an error satisfying model.IsNotFound so
// callers can treat absence as control flow. Any other error is a remote
// failure and should be propagated unchanged.
type CartResource interface {
	// Get fetches a cart by numeric id or opaque token.
	Get(ctx context.Context, identifier string) (*model.RemoteCart, error)

	// Add creates a cart owned by customerEmail and returns the stored snapshot.
	Add(ctx context.Context, customerEmail string) (*model.RemoteCart, error)

	// Delete removes a cart by id. Returns false if the remote did not have it.
	Delete(ctx context.Context, id string) (bool, error)

	// GetAll lists every cart matching filter, following remote pagination.
	GetAll(ctx context.Context, filter model.CartFilter) ([]model.RemoteCart, error)
}

// CartItemResource abstracts the remote cart-item sub-resource.
type CartItemResource interface {
	// Add creates a new line on item.CartID and returns it with its remote id.
	Add(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error)

	// Update sets the quantity of an existing line (item.ID on item.CartID).
	Update(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error)

	// Delete removes a line. cartToken addresses the owning cart.
	// Returns false if the remote did not have the line.
	Delete(ctx context.Context, itemID, cartToken string) (bool, error)
}
