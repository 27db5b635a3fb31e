package cart

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"cart-proxy/internal/model"
	"cart-proxy/internal/session"
)

func loadCart(t *testing.T, shop *fakeShop, remote *model.RemoteCart) (*Cart, *session.CartSession) {
	t.Helper()
	sess := session.New()
	return newCart(remote, shop.deps(nil), sess), sess
}

func TestCart_AddItem_NewVariant(t *testing.T) {
	shop := newFakeShop()
	c, sess := loadCart(t, shop, shop.seed("jane@example.com", map[string]int{"MUG": 1}))

	item, err := c.AddItem(context.Background(), "CAP", 3)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if shop.calls["items.add"] != 1 || shop.calls["items.update"] != 0 {
		t.Errorf("calls add/update = %d/%d, want 1/0", shop.calls["items.add"], shop.calls["items.update"])
	}
	if item.Variant != "CAP" || item.Quantity != 3 {
		t.Errorf("item = %s x%d, want CAP x3", item.Variant, item.Quantity)
	}
	if got := c.Items()["CAP"].Quantity; got != 3 {
		t.Errorf("line quantity after refresh = %d, want 3", got)
	}
	if sess.ItemCount() != 2 {
		t.Errorf("session ItemCount = %d, want 2", sess.ItemCount())
	}
}

func TestCart_AddItem_ExistingVariant(t *testing.T) {
	shop := newFakeShop()
	c, _ := loadCart(t, shop, shop.seed("jane@example.com", map[string]int{"MUG": 2}))

	if _, err := c.AddItem(context.Background(), "MUG", 3); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if shop.calls["items.update"] != 1 || shop.calls["items.add"] != 0 {
		t.Errorf("calls update/add = %d/%d, want 1/0", shop.calls["items.update"], shop.calls["items.add"])
	}
	if shop.lastUpdate.Quantity != 5 {
		t.Errorf("update quantity = %d, want 5", shop.lastUpdate.Quantity)
	}
	if len(c.ItemList()) != 1 {
		t.Errorf("lines = %d, want 1", len(c.ItemList()))
	}
	if got := c.Items()["MUG"].Quantity; got != 5 {
		t.Errorf("MUG quantity = %d, want 5", got)
	}
}

func TestCart_AddItem_RemoteErrorPropagates(t *testing.T) {
	shop := newFakeShop()
	remote := shop.seed("jane@example.com", nil)
	deps := shop.deps(nil)
	deps.Items = &failingItems{err: model.NewUpstreamError("Sylius", errors.New("boom"))}
	c := newCart(remote, deps, session.New())

	_, err := c.AddItem(context.Background(), "MUG", 1)
	if !errors.Is(err, model.ErrUpstreamError) {
		t.Errorf("AddItem() error = %v, want ErrUpstreamError", err)
	}
	if shop.calls["carts.get"] != 0 {
		t.Errorf("refresh after failed add: carts.get = %d, want 0", shop.calls["carts.get"])
	}
}

func TestCart_DeleteItem_UnknownVariant(t *testing.T) {
	shop := newFakeShop()
	c, _ := loadCart(t, shop, shop.seed("jane@example.com", map[string]int{"MUG": 1}))

	ok, err := c.DeleteItem(context.Background(), "CAP")
	if err != nil || ok {
		t.Errorf("DeleteItem(CAP) = %v, %v; want false, nil", ok, err)
	}
	if len(shop.calls) != 0 {
		t.Errorf("remote calls = %v, want none", shop.calls)
	}
}

func TestCart_DeleteItem_Existing(t *testing.T) {
	shop := newFakeShop()
	remote := shop.seed("jane@example.com", map[string]int{"MUG": 1, "CAP": 2})
	c, sess := loadCart(t, shop, remote)
	mugID := c.Items()["MUG"].ID

	ok, err := c.DeleteItem(context.Background(), "MUG")
	if err != nil || !ok {
		t.Fatalf("DeleteItem(MUG) = %v, %v; want true, nil", ok, err)
	}
	if shop.calls["items.delete"] != 1 {
		t.Errorf("items.delete calls = %d, want 1", shop.calls["items.delete"])
	}
	if want := [2]string{strconv.Itoa(mugID), remote.Token}; shop.lastDelete != want {
		t.Errorf("delete args = %v, want %v", shop.lastDelete, want)
	}
	if _, ok := c.Items()["MUG"]; ok {
		t.Error("MUG still present after refresh")
	}
	if sess.ItemCount() != 1 {
		t.Errorf("session ItemCount = %d, want 1", sess.ItemCount())
	}
}

func TestCart_Refresh_VanishedCartKeepsSnapshot(t *testing.T) {
	shop := newFakeShop()
	remote := shop.seed("jane@example.com", map[string]int{"MUG": 2})
	logger, buf := bufferLogger()
	sess := session.New()
	sess.SetItemCount(7)
	c := newCart(remote, shop.deps(logger), sess)
	delete(shop.carts, remote.ID)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v, want nil", err)
	}
	if c.ID() != remote.ID || len(c.Items()) != 1 || c.Items()["MUG"].Quantity != 2 {
		t.Errorf("snapshot changed: id=%d items=%v", c.ID(), c.Items())
	}
	if sess.ItemCount() != 7 {
		t.Errorf("session ItemCount = %d, want untouched 7", sess.ItemCount())
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning, got log %q", buf.String())
	}
}

func TestCart_Refresh_RemoteError(t *testing.T) {
	shop := newFakeShop()
	c, _ := loadCart(t, shop, shop.seed("jane@example.com", map[string]int{"MUG": 2}))
	shop.getErr = model.NewRateLimitError("Sylius")

	err := c.Refresh(context.Background())
	if !errors.Is(err, model.ErrRateLimited) {
		t.Errorf("Refresh() error = %v, want ErrRateLimited", err)
	}
	if c.Items()["MUG"].Quantity != 2 {
		t.Error("snapshot lost after failed refresh")
	}
}

func TestCart_Accessors(t *testing.T) {
	shop := newFakeShop()
	remote := shop.seed("", map[string]int{"B": 1, "A": 2})
	c, _ := loadCart(t, shop, remote)

	if _, ok := c.CustomerEmail(); ok {
		t.Error("CustomerEmail() ok = true for cart without customer")
	}
	if c.Token() != remote.Token {
		t.Errorf("Token() = %q, want %q", c.Token(), remote.Token)
	}
	if got := c.TotalPrice(); got != 37.5 {
		t.Errorf("TotalPrice() = %v, want 37.5", got)
	}
	list := c.ItemList()
	if len(list) != 2 || list[0].Variant != "A" || list[1].Variant != "B" {
		t.Errorf("ItemList() = %+v, want A then B", list)
	}

	items := c.Items()
	delete(items, "A")
	if _, ok := c.Items()["A"]; !ok {
		t.Error("Items() returned the internal map")
	}

	view := c.View()
	if view.ItemCount != 2 || view.TotalPrice != 37.5 || view.Items[0].UnitPrice != 12.5 {
		t.Errorf("View() = %+v", view)
	}
}

func TestCart_TotalPrice_ZeroDecimalCurrency(t *testing.T) {
	shop := newFakeShop()
	remote := &model.RemoteCart{ID: 90, Token: "tok-jpy", CurrencyCode: "JPY", ItemsTotal: 150000}
	c, _ := loadCart(t, shop, remote)

	if got := c.TotalPrice(); got != 1500 {
		t.Errorf("TotalPrice() = %v, want 1500", got)
	}
}

type failingItems struct{ err error }

func (f *failingItems) Add(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	return nil, f.err
}

func (f *failingItems) Update(ctx context.Context, item model.RemoteCartItem) (*model.RemoteCartItem, error) {
	return nil, f.err
}

func (f *failingItems) Delete(ctx context.Context, itemID, cartToken string) (bool, error) {
	return false, f.err
}
