// Package cart is the storefront's view of a remote shop cart: Cart wraps
// one remote snapshot with item operations, Manager decides which remote cart
// belongs to the current visitor.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cart-proxy/internal/adapter"
	"cart-proxy/internal/model"
	"cart-proxy/internal/session"
)

// Deps are the collaborators shared by Cart and Manager.
type Deps struct {
	Carts  adapter.CartResource
	Items  adapter.CartItemResource
	Logger *slog.Logger

	// AnonymousEmail owns carts created for visitors who are not logged in.
	AnonymousEmail string
}

// Cart wraps one remote cart snapshot plus its lines keyed by variant.
//
// The snapshot is never mutated locally: every item operation goes to the
// remote first and is followed by a full refresh.
type Cart struct {
	remote  *model.RemoteCart
	items   map[string]model.RemoteCartItem
	deps    Deps
	session *session.CartSession
}

func newCart(remote *model.RemoteCart, deps Deps, sess *session.CartSession) *Cart {
	return &Cart{
		remote:  remote,
		items:   model.ItemsByVariant(remote),
		deps:    deps,
		session: sess,
	}
}

// AddItem adds quantity of variant. An existing line for the variant gets its
// quantity raised; otherwise a new line is created. The cart is refreshed
// from the remote afterwards either way.
func (c *Cart) AddItem(ctx context.Context, variant string, quantity int) (*model.RemoteCartItem, error) {
	var (
		item *model.RemoteCartItem
		err  error
	)
	if existing, ok := c.items[variant]; ok {
		existing.Quantity += quantity
		existing.CartID = c.remote.ID
		item, err = c.deps.Items.Update(ctx, existing)
		if err != nil {
			return nil, fmt.Errorf("updating item %s: %w", variant, err)
		}
	} else {
		item, err = c.deps.Items.Add(ctx, model.RemoteCartItem{
			CartID:    c.remote.ID,
			CartToken: c.remote.Token,
			Variant:   variant,
			Quantity:  quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("adding item %s: %w", variant, err)
		}
	}

	return item, c.Refresh(ctx)
}

// DeleteItem removes the line for variant. Unknown variants report false
// without contacting the remote.
func (c *Cart) DeleteItem(ctx context.Context, variant string) (bool, error) {
	existing, ok := c.items[variant]
	if !ok {
		return false, nil
	}

	deleted, err := c.deps.Items.Delete(ctx, strconv.Itoa(existing.ID), c.cartToken(existing))
	if err != nil {
		return false, fmt.Errorf("deleting item %s: %w", variant, err)
	}

	return deleted, c.Refresh(ctx)
}

func (c *Cart) cartToken(item model.RemoteCartItem) string {
	if item.CartToken != "" {
		return item.CartToken
	}
	return c.remote.Identifier()
}

// Refresh re-fetches the cart by token. A cart that vanished upstream is
// logged and the stale snapshot kept; on success the lines are rebuilt and
// the session's item count updated.
func (c *Cart) Refresh(ctx context.Context) error {
	remote, err := c.deps.Carts.Get(ctx, c.remote.Identifier())
	if model.IsNotFound(err) {
		c.deps.Logger.Warn("cart vanished during refresh, keeping stale snapshot",
			"cart", c.remote.Identifier(),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("refreshing cart %s: %w", c.remote.Identifier(), err)
	}

	c.remote = remote
	c.items = model.ItemsByVariant(remote)
	if c.session != nil {
		c.session.SetItemCount(len(c.items))
	}
	return nil
}

// ID returns the remote cart id.
func (c *Cart) ID() int { return c.remote.ID }

// CustomerEmail returns the owning customer's email, if the remote has one.
func (c *Cart) CustomerEmail() (string, bool) {
	return c.remote.CustomerEmail, c.remote.CustomerEmail != ""
}

// Remote returns the underlying snapshot.
func (c *Cart) Remote() *model.RemoteCart { return c.remote }

// Items returns a copy of the lines keyed by variant code.
func (c *Cart) Items() map[string]model.RemoteCartItem {
	out := make(map[string]model.RemoteCartItem, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

// ItemList returns the lines ordered by variant code.
func (c *Cart) ItemList() []model.RemoteCartItem {
	return model.SortedItems(c.items)
}

// TotalPrice is the items total reported by the remote, in major units. The
// conversion uses the fixed Sylius scale whatever the cart's currency.
func (c *Cart) TotalPrice() float64 {
	return model.MinorToMajor(c.remote.ItemsTotal)
}

// Token returns the opaque remote cart token.
func (c *Cart) Token() string { return c.remote.Token }

// View renders the cart for storefront responses.
func (c *Cart) View() model.CartView {
	lines := c.ItemList()
	view := model.CartView{
		ID:            c.remote.ID,
		Token:         c.remote.Token,
		CustomerEmail: c.remote.CustomerEmail,
		Items:         make([]model.CartItemView, 0, len(lines)),
		ItemCount:     len(lines),
		TotalPrice:    c.TotalPrice(),
		CurrencyCode:  c.remote.CurrencyCode,
	}
	for _, item := range lines {
		view.Items = append(view.Items, model.NewItemView(item))
	}
	return view
}
