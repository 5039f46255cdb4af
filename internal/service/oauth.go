package service

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/soyeahso/loom/internal/domain"
)

// OAuth is the credentials service handle: authorize-URL construction,
// code exchange, and token refresh for one configured OAuth provider.
type OAuth struct {
	provider string
	config   oauth2.Config
}

// NewOAuth builds an OAuth handle from a provider config. The provider
// Settings map supplies clientId, clientSecret, authUrl, tokenUrl,
// redirectUrl, and a comma-separated scopes list.
func NewOAuth(cfg domain.ProviderConfig) (*OAuth, error) {
	clientID := cfg.Settings["clientId"]
	authURL := cfg.Settings["authUrl"]
	tokenURL := cfg.Settings["tokenUrl"]
	if clientID == "" || authURL == "" || tokenURL == "" {
		return nil, &UnavailableError{
			Provider: cfg.Name,
			Reason:   "oauth provider requires clientId, authUrl, and tokenUrl settings",
		}
	}

	var scopes []string
	if s := cfg.Settings["scopes"]; s != "" {
		for _, scope := range strings.Split(s, ",") {
			if scope = strings.TrimSpace(scope); scope != "" {
				scopes = append(scopes, scope)
			}
		}
	}

	return &OAuth{
		provider: cfg.Name,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: cfg.Settings["clientSecret"],
			RedirectURL:  cfg.Settings["redirectUrl"],
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
	}, nil
}

// Name returns the provider name.
func (o *OAuth) Name() string { return o.provider }

// AuthorizeURL returns the URL a user visits to grant access.
func (o *OAuth) AuthorizeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return o.config.Exchange(ctx, code)
}

// Refresh returns a valid token, refreshing the given one if expired.
func (o *OAuth) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return o.config.TokenSource(ctx, token).Token()
}
