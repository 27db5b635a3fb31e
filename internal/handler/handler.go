// Package handler provides the storefront cart API over REST and MCP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cart-proxy/internal/adapter"
	"cart-proxy/internal/cart"
	"cart-proxy/internal/metrics"
	"cart-proxy/internal/middleware"
	"cart-proxy/internal/model"
	"cart-proxy/internal/negotiation"
	"cart-proxy/internal/session"
	"cart-proxy/internal/user"
)

// Config holds the collaborators of Handler.
type Config struct {
	Carts          adapter.CartResource
	Items          adapter.CartItemResource
	Sessions       session.Store
	Users          user.Provider
	Cookie         session.CookieConfig
	AnonymousEmail string

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // Served on /metrics; nil disables the route
	Logger   *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	carts          adapter.CartResource
	items          adapter.CartItemResource
	sessions       session.Store
	users          user.Provider
	cookie         session.CookieConfig
	anonymousEmail string
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	logger         *slog.Logger
}

// New creates a Handler from cfg.
func New(cfg Config) *Handler {
	if cfg.Users == nil {
		cfg.Users = user.AnonymousProvider{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		carts:          cfg.Carts,
		items:          cfg.Items,
		sessions:       cfg.Sessions,
		users:          cfg.Users,
		cookie:         cfg.Cookie,
		anonymousEmail: cfg.AnonymousEmail,
		metrics:        cfg.Metrics,
		gatherer:       cfg.Gatherer,
		logger:         cfg.Logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Cart routes need the visitor's session and identity
	visitor := middleware.Chain(
		session.Middleware(h.sessions, h.cookie, h.logger),
		user.Middleware(h.users, h.logger),
	)

	mux.Handle("GET /cart", visitor(http.HandlerFunc(h.handleGetCart)))
	mux.Handle("GET /cart/summary", visitor(http.HandlerFunc(h.handleCartSummary)))
	mux.Handle("POST /cart/items", visitor(http.HandlerFunc(h.handleAddItem)))
	mux.Handle("DELETE /cart/items/{variant}", visitor(http.HandlerFunc(h.handleDeleteItem)))
	mux.Handle("DELETE /cart", visitor(http.HandlerFunc(h.handleDeleteCart)))
	mux.Handle("POST /cart/transfer", visitor(http.HandlerFunc(h.handleTransferCart)))

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// cartDeps bundles the collaborators for cart.Manager.
func (h *Handler) cartDeps(logger *slog.Logger) cart.Deps {
	return cart.Deps{
		Carts:          h.carts,
		Items:          h.items,
		Logger:         logger,
		AnonymousEmail: h.anonymousEmail,
	}
}

// visitorLogger tags the handler logger with the visitor's session id and,
// when the client declared one, its Storefront-Client version.
func (h *Handler) visitorLogger(sessionID string, client *negotiation.ClientInfo) *slog.Logger {
	logger := h.logger.With(slog.String("session_id", sessionID))
	if client != nil {
		logger = logger.With(slog.String("client_version", client.Version))
	}
	return logger
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends the error envelope for err. Errors without an APIError
// in their chain are logged and reported as INTERNAL_ERROR.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}
	h.writeJSON(w, apiErr.StatusCode, model.Envelope{Error: apiErr})
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", APIVersion: negotiation.ServerVersion})
}

type healthResponse struct {
	Status     string `json:"status"`
	APIVersion string `json:"api_version"`
}
