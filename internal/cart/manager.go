package cart

import (
	"context"
	"fmt"
	"strconv"

	"cart-proxy/internal/model"
	"cart-proxy/internal/session"
	"cart-proxy/internal/user"
)

// Manager resolves the current visitor's cart. It lives for one request and
// memoizes the resolved Cart.
//
// The session is the only state carried between requests; every successful
// resolution writes the cart id and line count back into it.
type Manager struct {
	deps    Deps
	session *session.CartSession
	user    *user.FrontendUser
	current *Cart
}

// NewManager creates a Manager for one request. u may be nil for anonymous
// visitors.
func NewManager(deps Deps, sess *session.CartSession, u *user.FrontendUser) *Manager {
	if sess == nil {
		sess = session.New()
	}
	return &Manager{deps: deps, session: sess, user: u}
}

// Session returns the session the manager writes to.
func (m *Manager) Session() *session.CartSession { return m.session }

// GetCart returns the visitor's cart, resolving in order: the cart id stored
// in the session, the single remote cart owned by the logged-in user, and
// finally a newly created cart.
func (m *Manager) GetCart(ctx context.Context) (*Cart, error) {
	if m.current != nil {
		return m.current, nil
	}

	if m.session.IsInitialized() {
		c, found, err := m.cartByID(ctx, m.session.CartID())
		if err != nil {
			return nil, err
		}
		if found {
			m.current = c
			return c, nil
		}
	}

	if m.user.IsLoggedIn() {
		c, found, err := m.cartByCustomerEmail(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			m.current = c
			return c, nil
		}
	}

	c, err := m.createCart(ctx)
	if err != nil {
		return nil, err
	}
	m.current = c
	return c, nil
}

// HasCart reports whether the session references a cart that still resolves.
// It never falls through to the user's cart or creates one.
func (m *Manager) HasCart(ctx context.Context) (bool, error) {
	if m.current != nil {
		return true, nil
	}
	if !m.session.IsInitialized() {
		return false, nil
	}
	c, found, err := m.cartByID(ctx, m.session.CartID())
	if err != nil {
		return false, err
	}
	if found {
		m.current = c
	}
	return found, nil
}

// DeleteCart deletes the session's remote cart. Returns false when the
// session holds no cart. The session itself is left untouched; the next
// resolution finds the id gone and falls through.
func (m *Manager) DeleteCart(ctx context.Context) (bool, error) {
	if !m.session.IsInitialized() {
		return false, nil
	}
	return m.deps.Carts.Delete(ctx, strconv.Itoa(m.session.CartID()))
}

// TotalPrice returns the cart's items total, 0 when there is no cart.
func (m *Manager) TotalPrice(ctx context.Context) (float64, error) {
	ok, err := m.HasCart(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return m.current.TotalPrice(), nil
}

// NumberOfItemsInCart returns the line count cached in the session. It does
// not consult the remote and can lag behind the live cart.
func (m *Manager) NumberOfItemsInCart() int {
	return m.session.ItemCount()
}

// TransferCartToCurrentUser moves the anonymous session cart into the
// logged-in user's cart. Each anonymous line becomes one add on the user
// cart, then the anonymous cart is deleted and the session points at the
// user cart.
func (m *Manager) TransferCartToCurrentUser(ctx context.Context) error {
	if !m.session.IsInitialized() || !m.user.IsLoggedIn() {
		return nil
	}
	email := m.user.Email()
	logger := m.deps.Logger.With("cart_id", m.session.CartID(), "user", email)
	logger.Debug("cart transfer requested")

	anonymous, found, err := m.cartByID(ctx, m.session.CartID())
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("session cart not found during transfer")
		return nil
	}
	m.current = anonymous

	if owner, _ := anonymous.CustomerEmail(); owner == email {
		logger.Debug("session cart already belongs to user")
		return nil
	}

	var (
		target    *model.RemoteCart
		itemCount int
	)
	existing, found, err := m.cartByCustomerEmail(ctx)
	if err != nil {
		return err
	}
	if found {
		target = existing.Remote()
		itemCount = len(existing.items)
	} else {
		target, err = m.deps.Carts.Add(ctx, email)
		if err != nil {
			return fmt.Errorf("creating user cart: %w", err)
		}
	}

	lines := anonymous.ItemList()
	for _, line := range lines {
		_, err := m.deps.Items.Add(ctx, model.RemoteCartItem{
			CartID:    target.ID,
			CartToken: target.Token,
			Variant:   line.Variant,
			Quantity:  line.Quantity,
		})
		if err != nil {
			return fmt.Errorf("transferring item %s: %w", line.Variant, err)
		}
		itemCount++
	}

	if _, err := m.deps.Carts.Delete(ctx, strconv.Itoa(anonymous.ID())); err != nil {
		return fmt.Errorf("deleting anonymous cart %d: %w", anonymous.ID(), err)
	}

	logger.Info("transferred anonymous cart",
		"items", len(lines),
		"user_cart_id", target.ID,
	)

	userCart := newCart(target, m.deps, m.session)
	if err := userCart.Refresh(ctx); err != nil {
		logger.Warn("refreshing user cart after transfer failed", "error", err)
	}
	m.current = userCart
	m.updateSession(userCart.Remote())
	m.session.SetItemCount(itemCount)
	return nil
}

// cartByID fetches a cart by id. A missing cart resets the cached count.
func (m *Manager) cartByID(ctx context.Context, id int) (*Cart, bool, error) {
	remote, err := m.deps.Carts.Get(ctx, strconv.Itoa(id))
	if model.IsNotFound(err) {
		m.session.SetItemCount(0)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetching cart %d: %w", id, err)
	}
	m.updateSession(remote)
	return newCart(remote, m.deps, m.session), true, nil
}

// cartByCustomerEmail looks up the logged-in user's cart. Anything other
// than exactly one match is logged; the first match wins.
func (m *Manager) cartByCustomerEmail(ctx context.Context) (*Cart, bool, error) {
	email := m.user.Email()
	carts, err := m.deps.Carts.GetAll(ctx, model.CartFilter{CustomerEmail: email})
	if err != nil {
		return nil, false, fmt.Errorf("searching carts for %s: %w", email, err)
	}

	if len(carts) != 1 {
		ids := make([]int, 0, len(carts))
		for _, c := range carts {
			ids = append(ids, c.ID)
		}
		m.deps.Logger.Warn("expected exactly one remote cart for user",
			"user", email,
			"cart_ids", ids,
		)
	}
	if len(carts) == 0 {
		return nil, false, nil
	}

	remote := carts[0]
	m.updateSession(&remote)
	return newCart(&remote, m.deps, m.session), true, nil
}

func (m *Manager) createCart(ctx context.Context) (*Cart, error) {
	email := m.deps.AnonymousEmail
	if m.user.IsLoggedIn() {
		email = m.user.Email()
	}

	remote, err := m.deps.Carts.Add(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	m.updateSession(remote)
	return newCart(remote, m.deps, m.session), nil
}

func (m *Manager) updateSession(remote *model.RemoteCart) {
	m.session.SetCartID(remote.ID)
	m.session.SetItemCount(len(remote.Items))
	m.deps.Logger.Debug("updating cart session",
		"cart_id", remote.ID,
		"item_count", len(remote.Items),
	)
}
