package cart

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"cart-proxy/internal/model"
)

const unitPrice = 1250

// fakeShop is an in-memory remote that counts every call by operation name.
type fakeShop struct {
	carts      map[int]*model.RemoteCart
	nextCartID int
	nextItemID int
	calls      map[string]int
	getErr     error

	lastUpdate model.RemoteCartItem
	lastDelete [2]string
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		carts:      make(map[int]*model.RemoteCart),
		nextCartID: 100,
		nextItemID: 500,
		calls:      make(map[string]int),
	}
}

// seed stores a cart for email with one line per variant/quantity pair.
func (s *fakeShop) seed(email string, lines map[string]int) *model.RemoteCart {
	s.nextCartID++
	c := &model.RemoteCart{
		ID:            s.nextCartID,
		Token:         "tok-" + strconv.Itoa(s.nextCartID),
		CustomerEmail: email,
		CurrencyCode:  "EUR",
	}
	variants := make([]string, 0, len(lines))
	for v := range lines {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	for _, v := range variants {
		s.nextItemID++
		c.Items = append(c.Items, model.RemoteCartItem{ID: s.nextItemID, Variant: v, Quantity: lines[v], UnitPrice: unitPrice})
	}
	recalc(c)
	s.carts[c.ID] = c
	return clone(c)
}

func (s *fakeShop) deps(logger *slog.Logger) Deps {
	if logger == nil {
		logger = testLogger()
	}
	return Deps{
		Carts:          &fakeCarts{shop: s},
		Items:          &fakeItems{shop: s},
		Logger:         logger,
		AnonymousEmail: "anonymous@shop.test",
	}
}

func (s *fakeShop) byIdentifier(identifier string) *model.RemoteCart {
	if id, err := strconv.Atoi(identifier); err == nil {
		return s.carts[id]
	}
	for _, c := range s.carts {
		if c.Token == identifier {
			return c
		}
	}
	return nil
}

func recalc(c *model.RemoteCart) {
	c.ItemsTotal = 0
	for i := range c.Items {
		c.Items[i].Total = int64(c.Items[i].Quantity) * c.Items[i].UnitPrice
		c.ItemsTotal += c.Items[i].Total
	}
	c.Total = c.ItemsTotal
}

func clone(c *model.RemoteCart) *model.RemoteCart {
	cp := *c
	cp.Items = append([]model.RemoteCartItem(nil), c.Items...)
	return &cp
}

type fakeCarts struct{ shop *fakeShop }

func (f *fakeCarts) Get(ctx context.Context, identifier string) (*model.RemoteCart, error) {
	f.shop.calls["carts.get"]++
	if f.shop.getErr != nil {
		return nil, f.shop.getErr
	}
	c := f.shop.byIdentifier(identifier)
	if c == nil {
		return nil, model.NewNotFoundError("cart")
	}
	return clone(c), nil
}

func (f *fakeCarts) Add(ctx context.Context, customerEmail string) (*model.RemoteCart, error) {
	f.shop.calls["carts.add"]++
	f.shop.calls["carts.add:"+customerEmail]++
	return f.shop.seed(customerEmail, nil), nil
}

func (f *fakeCarts) Delete(ctx context.Context, id string) (bool, error) {
	f.shop.calls["carts.delete"]++
	c := f.shop.byIdentifier(id)
	if c == nil {
		return false, nil
	}
	delete(f.shop.carts, c.ID)
	return true, nil
}

func (f *fakeCarts) GetAll(ctx context.Context, filter model.CartFilter) ([]model.RemoteCart, error) {
	f.shop.calls["carts.getall"]++
	var out []model.RemoteCart
	for _, c := range f.shop.carts {
		if c.CustomerEmail == filter.CustomerEmail {
			out = append(out, *clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeItems struct{ shop *fakeShop }

func (f *fakeItems) Add(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	f.shop.calls["items.add"]++
	c := f.shop.carts[item.CartID]
	if c == nil {
		return nil, model.NewNotFoundError("cart")
	}
	f.shop.nextItemID++
	item.ID = f.shop.nextItemID
	item.UnitPrice = unitPrice
	c.Items = append(c.Items, item)
	recalc(c)
	return &item, nil
}

func (f *fakeItems) Update(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	f.shop.calls["items.update"]++
	f.shop.lastUpdate = item
	c := f.shop.carts[item.CartID]
	if c == nil {
		return nil, model.NewNotFoundError("cart")
	}
	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity = item.Quantity
			recalc(c)
			return &item, nil
		}
	}
	return nil, model.NewNotFoundError("cart item")
}

func (f *fakeItems) Delete(ctx context.Context, itemID, cartToken string) (bool, error) {
	f.shop.calls["items.delete"]++
	f.shop.lastDelete = [2]string{itemID, cartToken}
	c := f.shop.byIdentifier(cartToken)
	if c == nil {
		return false, nil
	}
	for i := range c.Items {
		if strconv.Itoa(c.Items[i].ID) == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			recalc(c)
			return true, nil
		}
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
