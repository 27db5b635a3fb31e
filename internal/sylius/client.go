package sylius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"cart-proxy/internal/metrics"
	"cart-proxy/internal/model"
	"cart-proxy/internal/transport"
)

// adminAPIPath is the prefix of every admin API resource.
const adminAPIPath = "/api/v1"

// userAgent identifies this client to the shop. Some hosting WAFs reject
// requests without one.
const userAgent = "Cart-Proxy/1.0"

// Config holds Sylius client configuration.
type Config struct {
	BaseURL string // Shop root, e.g. https://shop.example.com

	// Either AccessToken, or ClientID/ClientSecret plus Username/Password
	// for the OAuth2 password grant.
	AccessToken  string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	Channel    string // Channel code for new carts
	LocaleCode string // Locale for new carts

	Timeout     time.Duration
	Fingerprint transport.Fingerprint
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// TracerProvider records a client span per request. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Client talks to the Sylius admin API. Carts and Items expose it through
// the adapter interfaces.
type Client struct {
	httpClient *http.Client
	baseURL    string
	channel    string
	locale     string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Sylius client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sylius base URL is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("sylius channel is required")
	}
	if cfg.LocaleCode == "" {
		cfg.LocaleCode = "en_US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	base := tracedTransport(
		transport.New(transport.Options{Timeout: cfg.Timeout, Fingerprint: cfg.Fingerprint}),
		cfg.TracerProvider,
	)
	src, err := tokenSource(cfg, baseURL, base)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: authTransport(src, base),
		},
		baseURL:    baseURL + adminAPIPath,
		channel:    cfg.Channel,
		locale:     cfg.LocaleCode,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}, nil
}

// tracedTransport wraps rt in an otelhttp client span. Span names hold only
// the method since paths embed cart tokens.
func tracedTransport(rt http.RoundTripper, tp trace.TracerProvider) http.RoundTripper {
	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "sylius " + r.Method
		}),
	}
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	return otelhttp.NewTransport(rt, opts...)
}

// Carts returns the cart collection adapter.
func (c *Client) Carts() *Carts { return &Carts{client: c} }

// Items returns the cart item adapter.
func (c *Client) Items() *Items { return &Items{client: c} }

// do performs one admin API call. body is JSON-encoded when non-nil; the
// response is decoded into out when non-nil and non-empty. resource names
// the entity in not-found errors.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, resource string) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	setHeaders(req, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRemote(op, 0, time.Since(start))
		return model.NewUpstreamError("Sylius", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRemote(op, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("sylius request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody, resource)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", resource, err)
	}
	return nil
}

func setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// parseErrorResponse converts a Sylius error to APIError.
func parseErrorResponse(statusCode int, body []byte, resource string) error {
	var sErr syliusError
	json.Unmarshal(body, &sErr) // Best effort parse

	msg := sErr.Message
	if msg == "" {
		msg = sErr.Desc
	}

	switch statusCode {
	case 404:
		return model.NewNotFoundError(resource)
	case 401, 403:
		return model.NewUnauthorizedError("Sylius authentication failed")
	case 400, 422:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(resource, msg)
	case 429:
		return model.NewRateLimitError("Sylius")
	default:
		return model.NewUpstreamError("Sylius", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}
