package middleware

import (
	"log/slog"
	"net/http"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"cart-proxy/internal/model"
)

// NewLimiter parses a formatted rate such as "300-M" and builds a per-client
// limiter on store. trustProxy keys clients by X-Forwarded-For / X-Real-IP.
func NewLimiter(rate string, store limiter.Store, trustProxy bool) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, r, limiter.WithTrustForwardHeader(trustProxy)), nil
}

// RateLimit rejects clients over l's rate with 429 and the standard error
// envelope. Health and metrics probes are never limited. A failing limiter
// store lets the request through.
func RateLimit(l *limiter.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := stdlib.NewMiddleware(l,
			stdlib.WithLimitReachedHandler(writeRateLimited),
			stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				logger.Error("rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
			}),
		).Handler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/health", "/healthz", "/metrics":
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	model.WriteError(w, model.NewRateLimitError("cart API"))
}
