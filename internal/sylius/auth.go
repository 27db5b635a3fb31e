package sylius

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// tokenPath is the FOSOAuthServer token endpoint.
const tokenPath = "/api/oauth/v2/token"

// tokenSource picks the admin API credential: a static bearer token if one is
// configured, otherwise a lazily fetched password-grant token that is
// re-requested once it expires.
func tokenSource(cfg Config, baseURL string, base http.RoundTripper) (oauth2.TokenSource, error) {
	if cfg.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}), nil
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("sylius credentials are required: access token or client id/secret with username/password")
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  baseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	// Token requests go through the same fingerprinted transport.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: base, Timeout: cfg.Timeout})

	return oauth2.ReuseTokenSource(nil, &passwordSource{
		ctx:      ctx,
		config:   oc,
		username: cfg.Username,
		password: cfg.Password,
	}), nil
}

// passwordSource runs the resource owner password grant on every Token call.
// Wrap it in oauth2.ReuseTokenSource.
type passwordSource struct {
	ctx      context.Context
	config   *oauth2.Config
	username string
	password string
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	tok, err := s.config.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("sylius password grant: %w", err)
	}
	return tok, nil
}

func authTransport(src oauth2.TokenSource, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{Source: src, Base: base}
}
