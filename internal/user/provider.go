package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned when a bearer token is present but unusable.
var ErrInvalidToken = errors.New("invalid identity token")

// Provider resolves the current visitor. A nil user with a nil error means
// the visitor is anonymous.
type Provider interface {
	Resolve(ctx context.Context, r *http.Request) (*FrontendUser, error)
	ResolveToken(ctx context.Context, token string) (*FrontendUser, error)
}

// AnonymousProvider treats every visitor as anonymous.
// Used when no identity secret is configured.
type AnonymousProvider struct{}

// Resolve always returns no user.
func (AnonymousProvider) Resolve(ctx context.Context, r *http.Request) (*FrontendUser, error) {
	return nil, nil
}

// ResolveToken always returns no user.
func (AnonymousProvider) ResolveToken(ctx context.Context, token string) (*FrontendUser, error) {
	return nil, nil
}

// JWTConfig configures JWTProvider.
type JWTConfig struct {
	Secret    []byte
	Issuer    string        // Optional; enforced when set
	Audience  string        // Optional; enforced when set
	ClockSkew time.Duration // Tolerance for exp/nbf
	Now       func() time.Time
}

// JWTProvider reads HS256-signed identity tokens issued by the storefront's
// login service. The token must carry an "email" claim.
type JWTProvider struct {
	cfg JWTConfig
}

// NewJWTProvider validates the config and returns a provider.
func NewJWTProvider(cfg JWTConfig) (*JWTProvider, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTProvider{cfg: cfg}, nil
}

// Resolve extracts the bearer token from the Authorization header.
// No header means anonymous.
func (p *JWTProvider) Resolve(ctx context.Context, r *http.Request) (*FrontendUser, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("%w: expected bearer authorization", ErrInvalidToken)
	}
	return p.ResolveToken(ctx, token)
}

// ResolveToken verifies a raw token. An empty token means anonymous.
func (p *JWTProvider) ResolveToken(ctx context.Context, token string) (*FrontendUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, p.cfg.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(p.cfg.Now)),
	}
	if p.cfg.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(p.cfg.ClockSkew))
	}
	if p.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(p.cfg.Issuer))
	}
	if p.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(p.cfg.Audience))
	}

	parsed, err := jwt.ParseString(token, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw, ok := parsed.Get("email")
	if !ok {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	email, ok := raw.(string)
	if !ok || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email claim must be a non-empty string", ErrInvalidToken)
	}

	return New(strings.TrimSpace(email), true), nil
}

var (
	_ Provider = AnonymousProvider{}
	_ Provider = (*JWTProvider)(nil)
)
