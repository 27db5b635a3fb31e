package user

import (
	"context"
	"log/slog"
	"net/http"

	"cart-proxy/internal/model"
)

type contextKey string

const userContextKey contextKey = "cart.user"

// Middleware resolves the visitor once per request and stores it in the
// context. A malformed or expired token is rejected with 401 rather than
// silently downgraded to anonymous, so a login never loses its cart transfer.
func Middleware(provider Provider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := provider.Resolve(r.Context(), r)
			if err != nil {
				logger.Warn("rejecting identity token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				model.WriteError(w, model.NewUnauthorizedError("invalid identity token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// WithUser stores u (possibly nil) in ctx.
func WithUser(ctx context.Context, u *FrontendUser) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// FromContext returns the request's user, or nil for anonymous visitors.
func FromContext(ctx context.Context) *FrontendUser {
	u, _ := ctx.Value(userContextKey).(*FrontendUser)
	return u
}
