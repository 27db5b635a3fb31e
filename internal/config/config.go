// Package config handles loading and validation of service configuration.
// Supports both development (env vars, optional .env) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/ulule/limiter/v3"

	"cart-proxy/internal/session"
	"cart-proxy/internal/transport"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds all service configuration.
// Environment determines whether store secrets load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Store holds the shop connection and identity settings. In production
	// the secret JSON is layered over the env values.
	Store StoreConfig

	Session SessionConfig
	Edge    EdgeConfig
	Tracing TracingConfig
}

// EdgeConfig covers browser-facing concerns in front of the API.
type EdgeConfig struct {
	// RateLimit uses the limiter's formatted syntax, e.g. "300-M". Empty disables limiting.
	RateLimit string `json:"rate_limit,omitempty"`
	// TrustProxy keys the limiter on X-Forwarded-For / X-Real-IP.
	TrustProxy bool `json:"trust_proxy,omitempty"`
	// CORSAllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSAllowedOrigins []string `json:"cors_allowed_origins,omitempty"`
}

// TracingConfig controls OpenTelemetry export. Tracing is off unless an
// endpoint is set.
type TracingConfig struct {
	Endpoint      string  `json:"endpoint,omitempty"` // Full OTLP/HTTP traces URL
	SamplingRatio float64 `json:"sampling_ratio,omitempty"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// StoreConfig describes the Sylius shop the proxy fronts.
type StoreConfig struct {
	SyliusURL    string `json:"sylius_url"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	AccessToken  string `json:"access_token,omitempty"` // Skips the password grant when set
	Channel      string `json:"channel"`
	Locale       string `json:"locale,omitempty"`

	// AnonymousEmail is the customer carts are created for when nobody is logged in.
	AnonymousEmail string `json:"anonymous_email"`
	// Fingerprint selects the outbound TLS ClientHello ("go", "chrome", "firefox").
	Fingerprint string `json:"tls_fingerprint,omitempty"`

	// Storefront identity tokens. Empty secret = every visitor is anonymous.
	JWTSecret   string `json:"jwt_secret,omitempty"`
	JWTIssuer   string `json:"jwt_issuer,omitempty"`
	JWTAudience string `json:"jwt_audience,omitempty"`
}

// SessionConfig selects the session backend and cookie behaviour.
type SessionConfig struct {
	Backend        string        `json:"backend"` // "memory" or "redis"
	RedisURL       string        `json:"redis_url,omitempty"`
	TTL            time.Duration `json:"-"`
	CookieName     string        `json:"cookie_name,omitempty"`
	CookieDomain   string        `json:"cookie_domain,omitempty"`
	CookieSecure   bool          `json:"cookie_secure,omitempty"`
	CookieSameSite http.SameSite `json:"-"`
}

// Cookie converts the settings into the session middleware's CookieConfig.
func (s SessionConfig) Cookie() session.CookieConfig {
	return session.CookieConfig{
		Name:     s.CookieName,
		Domain:   s.CookieDomain,
		Secure:   s.CookieSecure,
		MaxAge:   s.TTL,
		SameSite: s.CookieSameSite,
	}
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// .env never overrides variables already set, and is ignored in production
	if os.Getenv("ENVIRONMENT") != "production" {
		_ = godotenv.Load()
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(k.String("PORT"), "8080"),
		Environment: withDefault(k.String("ENVIRONMENT"), "development"),
		LogLevel:    withDefault(k.String("LOG_LEVEL"), "info"),
		GCPProject:  k.String("GCP_PROJECT"),
		StoreID:     k.String("STORE_ID"),
	}
	cfg.loadFromEnv(k)

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading store config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string        `json:"port"`
		Environment string        `json:"environment"`
		LogLevel    string        `json:"log_level"`
		StoreID     string        `json:"store_id"`
		Store       StoreConfig   `json:"store"`
		Session     SessionConfig `json:"session"`
		Edge        EdgeConfig    `json:"edge"`
		Tracing     TracingConfig `json:"tracing"`
		SessionTTL  string        `json:"session_ttl"`
		SameSite    string        `json:"cookie_same_site"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		StoreID:     fileConfig.StoreID,
		Store:       fileConfig.Store,
		Session:     fileConfig.Session,
		Edge:        fileConfig.Edge,
		Tracing:     fileConfig.Tracing,
	}
	cfg.Session.TTL, err = parseDuration(fileConfig.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid session_ttl: %w", err)
	}
	cfg.Session.CookieSameSite = parseSameSite(fileConfig.SameSite)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromSecretManager overlays the store secret on the env settings.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecret(result.Payload.Data)
}

// applySecret unmarshals secret JSON over the current store settings.
// Fields absent from the secret keep their env values.
func (c *Config) applySecret(data []byte) error {
	if err := json.Unmarshal(data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads store and session settings from individual variables.
func (c *Config) loadFromEnv(k *koanf.Koanf) {
	c.Store = StoreConfig{
		SyliusURL:      k.String("SYLIUS_API_URL"),
		ClientID:       k.String("SYLIUS_CLIENT_ID"),
		ClientSecret:   k.String("SYLIUS_CLIENT_SECRET"),
		Username:       k.String("SYLIUS_USERNAME"),
		Password:       k.String("SYLIUS_PASSWORD"),
		AccessToken:    k.String("SYLIUS_ACCESS_TOKEN"),
		Channel:        k.String("SYLIUS_CHANNEL"),
		Locale:         k.String("SYLIUS_LOCALE"),
		AnonymousEmail: k.String("ANONYMOUS_CUSTOMER_EMAIL"),
		Fingerprint:    k.String("TLS_FINGERPRINT"),
		JWTSecret:      k.String("JWT_SECRET"),
		JWTIssuer:      k.String("JWT_ISSUER"),
		JWTAudience:    k.String("JWT_AUDIENCE"),
	}

	ttl, err := parseDuration(k.String("SESSION_TTL"))
	if err != nil {
		// Caught again by validate with the variable name attached
		ttl = -1
	}
	c.Session = SessionConfig{
		Backend:        k.String("SESSION_STORE"),
		RedisURL:       k.String("REDIS_URL"),
		TTL:            ttl,
		CookieName:     k.String("SESSION_COOKIE"),
		CookieDomain:   strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:   parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite: parseSameSite(k.String("COOKIE_SAMESITE")),
	}

	c.Edge = EdgeConfig{
		RateLimit:          strings.TrimSpace(k.String("RATE_LIMIT")),
		TrustProxy:         parseBool(k.String("TRUST_PROXY")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
	}

	ratio, err := parseRatio(k.String("TRACE_SAMPLING_RATIO"))
	if err != nil {
		ratio = -1
	}
	c.Tracing = TracingConfig{
		Endpoint:      strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")),
		SamplingRatio: ratio,
	}
	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	c.Store.Locale = withDefault(c.Store.Locale, "en_US")
	c.Store.Fingerprint = withDefault(c.Store.Fingerprint, string(transport.FingerprintGo))
	c.Session.Backend = withDefault(c.Session.Backend, SessionMemory)
	c.Session.CookieName = withDefault(c.Session.CookieName, "cart_session")
	if c.Session.TTL == 0 {
		c.Session.TTL = session.DefaultTTL
	}
	if c.Tracing.SamplingRatio == 0 {
		c.Tracing.SamplingRatio = 1
	}
	if c.Session.CookieSameSite == http.SameSiteDefaultMode {
		c.Session.CookieSameSite = http.SameSiteLaxMode
	}
	// Browsers drop SameSite=None cookies without Secure
	if c.Session.CookieSameSite == http.SameSiteNoneMode {
		c.Session.CookieSecure = true
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	s := c.Store
	if s.SyliusURL == "" {
		return fmt.Errorf("sylius_url is required")
	}
	u, err := url.Parse(s.SyliusURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid sylius_url %q", s.SyliusURL)
	}
	if s.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if s.AccessToken == "" {
		if s.ClientID == "" || s.ClientSecret == "" || s.Username == "" || s.Password == "" {
			return fmt.Errorf("either access_token or client_id, client_secret, username and password are required")
		}
	}
	if s.AnonymousEmail == "" {
		return fmt.Errorf("anonymous_email is required")
	}
	if _, err := mail.ParseAddress(s.AnonymousEmail); err != nil {
		return fmt.Errorf("invalid anonymous_email: %w", err)
	}
	if _, err := transport.ParseFingerprint(s.Fingerprint); err != nil {
		return err
	}
	if s.JWTSecret == "" && (s.JWTIssuer != "" || s.JWTAudience != "") {
		return fmt.Errorf("jwt_secret is required when jwt_issuer or jwt_audience is set")
	}

	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis session store")
		}
	default:
		return fmt.Errorf("unknown session store %q (memory or redis)", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("invalid SESSION_TTL")
	}

	if c.Edge.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.Edge.RateLimit); err != nil {
			return fmt.Errorf("invalid rate_limit %q: %w", c.Edge.RateLimit, err)
		}
	}
	if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
		return fmt.Errorf("trace sampling ratio must be between 0 and 1")
	}

	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + withDefault(port, "8080")
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return defaultVal
}

// parseDuration returns 0 for an empty value so defaults can apply.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return d, nil
}

// parseRatio returns 0 for an empty value so defaults can apply.
func parseRatio(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
