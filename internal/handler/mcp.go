// MCP transport for the cart API using the official MCP Go SDK.
// Exposes the same cart operations as the REST routes as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cart-proxy/internal/cart"
	"cart-proxy/internal/model"
	"cart-proxy/internal/negotiation"
	"cart-proxy/internal/session"
)

// === MCP Meta Types ===
// meta replaces what REST carries in cookies and headers:
// - cart_session cookie / X-Cart-Session → meta.session
// - Authorization: Bearer → meta.user_token
// - Storefront-Client version → meta.client_version

// MCPMeta represents request metadata in MCP requests.
type MCPMeta struct {
	Session       string `json:"session,omitempty" jsonschema:"cart session id returned by a previous call; omit to start a new session"`
	UserToken     string `json:"user_token,omitempty" jsonschema:"storefront identity token of the logged-in user"`
	ClientVersion string `json:"client_version,omitempty" jsonschema:"cart API version the client was built against"`
}

// === MCP Tool Input/Output Types ===

// CartInput is the input schema for tools that only need meta.
type CartInput struct {
	Meta MCPMeta `json:"meta,omitempty" jsonschema:"request metadata"`
}

// AddItemInput is the input schema for add_item.
type AddItemInput struct {
	Meta     MCPMeta `json:"meta,omitempty" jsonschema:"request metadata"`
	Variant  string  `json:"variant" jsonschema:"product variant code"`
	Quantity int     `json:"quantity" jsonschema:"quantity to add, at least 1"`
}

// DeleteItemInput is the input schema for delete_item.
type DeleteItemInput struct {
	Meta    MCPMeta `json:"meta,omitempty" jsonschema:"request metadata"`
	Variant string  `json:"variant" jsonschema:"product variant code to remove"`
}

// CartOutput returns the session id so the client can continue it.
type CartOutput struct {
	Session string          `json:"session"`
	Cart    *model.CartView `json:"cart,omitempty"`
}

// SummaryOutput is the result of cart_summary.
type SummaryOutput struct {
	Session    string  `json:"session"`
	HasCart    bool    `json:"has_cart"`
	ItemCount  int     `json:"item_count"`
	TotalPrice float64 `json:"total_price"`
}

// AddItemOutput is the result of add_item.
type AddItemOutput struct {
	Session string             `json:"session"`
	Item    model.CartItemView `json:"item"`
	Cart    model.CartView     `json:"cart"`
}

// DeleteOutput is the result of delete_item and delete_cart.
type DeleteOutput struct {
	Session string          `json:"session"`
	Deleted bool            `json:"deleted"`
	Cart    *model.CartView `json:"cart,omitempty"`
}

// NewMCPServer creates an MCP server with the cart tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cart-proxy",
			Version: negotiation.ServerVersion,
		},
		&mcp.ServerOptions{
			Instructions: "Storefront cart operations. Pass meta.session from a previous " +
				"result to keep working on the same cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the visitor's cart, creating one if none exists.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_summary",
		Description: "Get item count and total price without creating a cart.",
	}, h.mcpCartSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_item",
		Description: "Add a quantity of a product variant to the cart.",
	}, h.mcpAddItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_item",
		Description: "Remove a product variant's line from the cart.",
	}, h.mcpDeleteItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_cart",
		Description: "Delete the session's cart.",
	}, h.mcpDeleteCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transfer_cart",
		Description: "Move the anonymous session cart into the logged-in user's cart. Requires meta.user_token.",
	}, h.mcpTransferCart)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// mcpScope is the MCP counterpart of the REST visitor middleware.
type mcpScope struct {
	id       string
	session  *session.CartSession
	manager  *cart.Manager
	logger   *slog.Logger
	loggedIn bool
}

// mcpBegin negotiates, loads the session and resolves the user from meta.
func (h *Handler) mcpBegin(ctx context.Context, meta MCPMeta) (*mcpScope, error) {
	client, err := negotiation.NegotiateForMCP(negotiation.ServerVersion, meta.ClientVersion)
	if err != nil {
		var verErr *negotiation.VersionError
		if errors.As(err, &verErr) {
			return nil, fmt.Errorf("%s: %s", verErr.Code, verErr.Message)
		}
		return nil, err
	}

	id := strings.TrimSpace(meta.Session)
	if id == "" {
		id = session.NewID()
	} else if !session.ValidID(id) {
		return nil, fmt.Errorf("VALIDATION_ERROR: invalid meta.session")
	}

	sess, err := h.sessions.Load(ctx, id)
	if err != nil {
		h.logger.Error("loading session failed", "error", err.Error())
		return nil, fmt.Errorf("SESSION_UNAVAILABLE: session store unavailable")
	}

	u, err := h.users.ResolveToken(ctx, meta.UserToken)
	if err != nil {
		return nil, fmt.Errorf("UNAUTHORIZED: invalid user token")
	}

	logger := h.visitorLogger(id, client)
	return &mcpScope{
		id:       id,
		session:  sess,
		manager:  cart.NewManager(h.cartDeps(logger), sess, u),
		logger:   logger,
		loggedIn: u.IsLoggedIn(),
	}, nil
}

// mcpEnd persists the session if the tool changed it.
func (h *Handler) mcpEnd(ctx context.Context, s *mcpScope) {
	if !s.session.Dirty() {
		return
	}
	if err := h.sessions.Save(context.WithoutCancel(ctx), s.id, s.session); err != nil {
		s.logger.Error("saving session failed", "error", err.Error())
	}
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(ctx context.Context, req *mcp.CallToolRequest, input CartInput) (*mcp.CallToolResult, *CartOutput, error) {
	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	c, err := s.manager.GetCart(ctx)
	h.metrics.CountCartOp("get_cart", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	view := c.View()
	return nil, &CartOutput{Session: s.id, Cart: &view}, nil
}

func (h *Handler) mcpCartSummary(ctx context.Context, req *mcp.CallToolRequest, input CartInput) (*mcp.CallToolResult, *SummaryOutput, error) {
	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	hasCart, err := s.manager.HasCart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	total, err := s.manager.TotalPrice(ctx)
	h.metrics.CountCartOp("cart_summary", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &SummaryOutput{
		Session:    s.id,
		HasCart:    hasCart,
		ItemCount:  s.manager.NumberOfItemsInCart(),
		TotalPrice: total,
	}, nil
}

func (h *Handler) mcpAddItem(ctx context.Context, req *mcp.CallToolRequest, input AddItemInput) (*mcp.CallToolResult, *AddItemOutput, error) {
	addReq := model.AddItemRequest{Variant: input.Variant, Quantity: input.Quantity}
	if err := validateAddItem(&addReq); err != nil {
		return nil, nil, h.mcpError(err)
	}

	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	resp, err := addItem(ctx, s.manager, addReq)
	h.metrics.CountCartOp("add_item", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &AddItemOutput{Session: s.id, Item: resp.Item, Cart: resp.Cart}, nil
}

func (h *Handler) mcpDeleteItem(ctx context.Context, req *mcp.CallToolRequest, input DeleteItemInput) (*mcp.CallToolResult, *DeleteOutput, error) {
	variant := strings.TrimSpace(input.Variant)
	if variant == "" {
		return nil, nil, h.mcpError(model.NewValidationError("variant", "variant code required"))
	}

	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	hasCart, err := s.manager.HasCart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	if !hasCart {
		return nil, &DeleteOutput{Session: s.id}, nil
	}

	c, err := s.manager.GetCart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	deleted, err := c.DeleteItem(ctx, variant)
	h.metrics.CountCartOp("delete_item", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	view := c.View()
	return nil, &DeleteOutput{Session: s.id, Deleted: deleted, Cart: &view}, nil
}

func (h *Handler) mcpDeleteCart(ctx context.Context, req *mcp.CallToolRequest, input CartInput) (*mcp.CallToolResult, *DeleteOutput, error) {
	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	deleted, err := s.manager.DeleteCart(ctx)
	h.metrics.CountCartOp("delete_cart", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &DeleteOutput{Session: s.id, Deleted: deleted}, nil
}

func (h *Handler) mcpTransferCart(ctx context.Context, req *mcp.CallToolRequest, input CartInput) (*mcp.CallToolResult, *CartOutput, error) {
	s, err := h.mcpBegin(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	defer h.mcpEnd(ctx, s)

	if !s.loggedIn {
		return nil, nil, h.mcpError(model.NewUnauthorizedError("login required to transfer cart"))
	}
	if err := s.manager.TransferCartToCurrentUser(ctx); err != nil {
		h.metrics.CountCartOp("transfer_cart", err)
		return nil, nil, h.mcpError(err)
	}
	c, err := s.manager.GetCart(ctx)
	h.metrics.CountCartOp("transfer_cart", err)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	view := c.View()
	return nil, &CartOutput{Session: s.id, Cart: &view}, nil
}

// mcpError turns err into the tool error text. Internal details stay in the log.
func (h *Handler) mcpError(err error) error {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	}
	return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
}
