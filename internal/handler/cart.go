package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"cart-proxy/internal/cart"
	"cart-proxy/internal/model"
	"cart-proxy/internal/negotiation"
	"cart-proxy/internal/session"
	"cart-proxy/internal/user"
)

// manager builds the per-request cart.Manager from the visitor context.
func (h *Handler) manager(r *http.Request) *cart.Manager {
	ctx := r.Context()
	return cart.NewManager(h.cartDeps(h.requestLogger(r)), session.FromContext(ctx), user.FromContext(ctx))
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	ctx := r.Context()
	return h.visitorLogger(session.IDFromContext(ctx), negotiation.ClientFromContext(ctx))
}

// handleGetCart returns the visitor's cart, creating one if needed.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.manager(r).GetCart(r.Context())
	h.metrics.CountCartOp("get_cart", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c.View())
}

// handleCartSummary returns the cheap header badge data. Never creates a cart.
// GET /cart/summary
func (h *Handler) handleCartSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := h.manager(r)

	hasCart, err := m.HasCart(ctx)
	if err != nil {
		h.metrics.CountCartOp("cart_summary", err)
		h.writeError(w, err)
		return
	}
	total, err := m.TotalPrice(ctx)
	h.metrics.CountCartOp("cart_summary", err)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, model.CartSummary{
		HasCart:    hasCart,
		ItemCount:  m.NumberOfItemsInCart(),
		TotalPrice: total,
	})
}

// handleAddItem adds a variant to the cart.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAddItem(&req); err != nil {
		h.writeError(w, err)
		return
	}

	h.requestLogger(r).InfoContext(ctx, "adding cart item",
		slog.String("variant", req.Variant),
		slog.Int("quantity", req.Quantity),
	)

	resp, err := addItem(ctx, h.manager(r), req)
	h.metrics.CountCartOp("add_item", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// addItem resolves the cart and adds req to it. Shared by REST and MCP.
func addItem(ctx context.Context, m *cart.Manager, req model.AddItemRequest) (*model.AddItemResponse, error) {
	c, err := m.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	item, err := c.AddItem(ctx, req.Variant, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &model.AddItemResponse{Item: model.NewItemView(*item), Cart: c.View()}, nil
}

// handleDeleteItem removes a variant's line from the cart.
// DELETE /cart/items/{variant}
func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variant := strings.TrimSpace(r.PathValue("variant"))
	if variant == "" {
		h.writeError(w, model.NewValidationError("variant", "variant code required"))
		return
	}

	m := h.manager(r)
	hasCart, err := m.HasCart(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !hasCart {
		h.writeError(w, model.NewNotFoundError("cart item"))
		return
	}

	c, err := m.GetCart(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	deleted, err := c.DeleteItem(ctx, variant)
	h.metrics.CountCartOp("delete_item", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		h.writeError(w, model.NewNotFoundError("cart item"))
		return
	}

	h.requestLogger(r).InfoContext(ctx, "deleted cart item", slog.String("variant", variant), slog.Int("cart_id", c.ID()))
	h.writeJSON(w, http.StatusOK, c.View())
}

// handleDeleteCart deletes the session's remote cart.
// DELETE /cart
func (h *Handler) handleDeleteCart(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.manager(r).DeleteCart(r.Context())
	h.metrics.CountCartOp("delete_cart", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		h.writeError(w, model.NewNotFoundError("cart"))
		return
	}
	h.writeJSON(w, http.StatusOK, deleteCartResponse{Deleted: true})
}

type deleteCartResponse struct {
	Deleted bool `json:"deleted"`
}

// handleTransferCart merges the anonymous session cart into the user's cart.
// POST /cart/transfer
func (h *Handler) handleTransferCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !user.FromContext(ctx).IsLoggedIn() {
		h.writeError(w, model.NewUnauthorizedError("login required to transfer cart"))
		return
	}

	m := h.manager(r)
	if err := m.TransferCartToCurrentUser(ctx); err != nil {
		h.metrics.CountCartOp("transfer_cart", err)
		h.writeError(w, err)
		return
	}
	c, err := m.GetCart(ctx)
	h.metrics.CountCartOp("transfer_cart", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c.View())
}
