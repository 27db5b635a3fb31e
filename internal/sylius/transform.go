package sylius

import "cart-proxy/internal/model"

// toRemoteCart converts a Sylius cart to the platform-neutral snapshot.
func toRemoteCart(c *syliusCart) *model.RemoteCart {
	cart := &model.RemoteCart{
		ID:            c.ID,
		Token:         c.TokenValue,
		Items:         make([]model.RemoteCartItem, 0, len(c.Items)),
		ItemsTotal:    c.ItemsTotal,
		Total:         c.Total,
		CurrencyCode:  c.CurrencyCode,
		LocaleCode:    c.LocaleCode,
		CheckoutState: c.CheckoutState,
	}
	if c.Customer != nil {
		cart.CustomerEmail = c.Customer.Email
	}
	if c.Channel != nil {
		cart.Channel = c.Channel.Code
	}
	for _, it := range c.Items {
		item := toRemoteItem(&it)
		item.CartID = c.ID
		item.CartToken = c.TokenValue
		cart.Items = append(cart.Items, item)
	}
	return cart
}

func toRemoteItem(it *syliusCartItem) model.RemoteCartItem {
	return model.RemoteCartItem{
		ID:        it.ID,
		Variant:   it.Variant.Code,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Total:     it.Total,
	}
}
