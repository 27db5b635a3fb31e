package negotiation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"cart-proxy/internal/model"
)

// contextKey is the type for context values to avoid collisions
type contextKey string

const clientContextKey contextKey = "negotiation.client"

// Middleware stamps VersionHeader on every response and rejects requests
// whose Storefront-Client header declares an incompatible version.
// Requests without the header pass through.
func Middleware(serverVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(VersionHeader, serverVersion)

			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(ClientHeader)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := ParseClientHeader(header)
			if err != nil {
				logger.Warn("invalid Storefront-Client header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				writeNegotiationError(w, http.StatusBadRequest, ClientHeaderInvalid,
					"Invalid Storefront-Client header: "+err.Error())
				return
			}

			if err := CheckCompatible(serverVersion, info.Version); err != nil {
				var verErr *VersionError
				if errors.As(err, &verErr) {
					writeNegotiationError(w, http.StatusBadRequest, verErr.Code, verErr.Message)
					return
				}
				writeNegotiationError(w, http.StatusBadRequest, ClientVersionUnsupported, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), clientContextKey, &info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isExemptPath returns true for infrastructure paths.
func isExemptPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/metrics":
		return true
	default:
		return false
	}
}

func writeNegotiationError(w http.ResponseWriter, status int, code, message string) {
	model.WriteError(w, &model.APIError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Err:        model.ErrInvalidRequest,
	})
}

// ClientFromContext returns the negotiated client, nil when the request
// carried no Storefront-Client header.
func ClientFromContext(ctx context.Context) *ClientInfo {
	info, _ := ctx.Value(clientContextKey).(*ClientInfo)
	return info
}

// NegotiateForMCP checks a client version passed in MCP request meta.
// MCP doesn't go through Middleware, so each tool call checks explicitly.
// An empty version is accepted.
func NegotiateForMCP(serverVersion, clientVersion string) (*ClientInfo, error) {
	if clientVersion == "" {
		return nil, nil
	}
	if err := CheckCompatible(serverVersion, clientVersion); err != nil {
		return nil, err
	}
	return &ClientInfo{Version: clientVersion}, nil
}
