package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/providers"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrNoCredentials = errors.New("no credentials: configure token or tenant_id, client_id and client_secret")

// Build the token source described by the configuration. A configured token
// wins over client credentials.
func NewTokenSource(ctx context.Context, cfg *models.Configuration, resolver *providers.Resolver, client *http.Client) (oauth2.TokenSource, error) {
	if cfg.Token != nil {
		raw, err := resolver.ResolveOne(ctx, *cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		log.Debug().Str("source", cfg.Token.String()).Msg("using static bearer token")
		return StaticTokenSource(raw), nil
	}

	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == nil {
		return nil, ErrNoCredentials
	}

	secret, err := resolver.ResolveOne(ctx, *cfg.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("client_secret: %w", err)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: secret,
		TokenURL:     TokenURL(cfg.AuthorityURL, cfg.TenantID),
		Scopes:       []string{cfg.Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	log.Debug().
		Str("tenant_id", cfg.TenantID).
		Str("client_id", cfg.ClientID).
		Msg("using client credentials")

	// refresh one minute before expiry
	return oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(ctx), time.Minute), nil
}

// Entra ID v2 token endpoint of a tenant
func TokenURL(authority, tenant string) string {
	return strings.TrimSuffix(authority, "/") + "/" + tenant + "/oauth2/v2.0/token"
}

// Token source for a pre-acquired bearer token. The expiry is taken from the
// exp claim when the token is a JWT.
func StaticTokenSource(raw string) oauth2.TokenSource {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	token := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, err := ParseClaims(raw); err == nil && claims.Expiry != nil {
		token.Expiry = claims.Expiry.Time()
	}
	return &staticTokenSource{token: token}
}

type staticTokenSource struct {
	token *oauth2.Token
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	if !s.token.Expiry.IsZero() && time.Now().After(s.token.Expiry) {
		return nil, fmt.Errorf("bearer token expired at %s", s.token.Expiry.Format(time.RFC3339))
	}
	return s.token, nil
}
