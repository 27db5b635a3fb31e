package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"cart-proxy/internal/negotiation"
	"cart-proxy/internal/session"
)

// CORS lets browser storefronts on the given origins call the cart API with
// credentials. The session and version headers are exposed to scripts.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			session.HeaderName, negotiation.ClientHeader,
			"Mcp-Session-Id", "Mcp-Protocol-Version",
		},
		ExposedHeaders: []string{
			session.HeaderName, negotiation.VersionHeader, RequestIDHeader, "Mcp-Session-Id",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
