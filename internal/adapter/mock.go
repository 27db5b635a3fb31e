package adapter

import (
	"context"

	"cart-proxy/internal/model"
)

// MockCarts implements CartResource for testing.
// Each method can be configured via function fields.
type MockCarts struct {
	GetFunc    func(ctx context.Context, identifier string) (*model.RemoteCart, error)
	AddFunc    func(ctx context.Context, customerEmail string) (*model.RemoteCart, error)
	DeleteFunc func(ctx context.Context, id string) (bool, error)
	GetAllFunc func(ctx context.Context, filter model.CartFilter) ([]model.RemoteCart, error)
}

// Get calls the configured GetFunc or returns not found.
func (m *MockCarts) Get(ctx context.Context, identifier string) (*model.RemoteCart, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identifier)
	}
	return nil, model.NewNotFoundError("cart")
}

// Add calls the configured AddFunc or returns an empty cart with id 1.
func (m *MockCarts) Add(ctx context.Context, customerEmail string) (*model.RemoteCart, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, customerEmail)
	}
	return &model.RemoteCart{ID: 1, Token: "mock-token", CustomerEmail: customerEmail}, nil
}

// Delete calls the configured DeleteFunc or reports nothing deleted.
func (m *MockCarts) Delete(ctx context.Context, id string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return false, nil
}

// GetAll calls the configured GetAllFunc or returns no carts.
func (m *MockCarts) GetAll(ctx context.Context, filter model.CartFilter) ([]model.RemoteCart, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx, filter)
	}
	return nil, nil
}

// MockItems implements CartItemResource for testing.
type MockItems struct {
	AddFunc    func(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error)
	UpdateFunc func(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error)
	DeleteFunc func(ctx context.Context, itemID, cartToken string) (bool, error)
}

// Add calls the configured AddFunc or echoes the item back.
func (m *MockItems) Add(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, item)
	}
	return &item, nil
}

// Update calls the configured UpdateFunc or echoes the item back.
func (m *MockItems) Update(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, item)
	}
	return &item, nil
}

// Delete calls the configured DeleteFunc or reports nothing deleted.
func (m *MockItems) Delete(ctx context.Context, itemID, cartToken string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, itemID, cartToken)
	}
	return false, nil
}

// Verify mocks implement the interfaces at compile time.
var (
	_ CartResource     = (*MockCarts)(nil)
	_ CartItemResource = (*MockItems)(nil)
)
