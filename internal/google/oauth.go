package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth implements the web server OAuth2 flow against Google. Tokens are
// held by the caller's session, never written to disk.
type OAuth struct {
	conf *oauth2.Config
}

// NewOAuth creates the OAuth2 configuration for the web flow.
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       OAuthScopes,
		},
	}
}

// AuthCodeURL returns the consent page URL for the given CSRF state.
// Offline access is requested so Google issues a refresh token.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// HTTPClient returns an HTTP client that authenticates requests with the
// token, refreshing it transparently when expired.
func (o *OAuth) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, o.conf.TokenSource(ctx, token))
}
