package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultRedirectURL matches the callback route served by the HTTP server.
const DefaultRedirectURL = "http://localhost:8080/redirect"

// ErrMissingClientCredentials is returned when the OAuth client id or secret is not configured.
var ErrMissingClientCredentials = errors.New("google OAuth client credentials not configured; set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")

// OAuthClientConfig identifies the OAuth client registered in the Google Cloud console.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuthConfig creates the OAuth2 config for the calendar scopes.
func NewOAuthConfig(c OAuthClientConfig) (*oauth2.Config, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, ErrMissingClientCredentials
	}
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google return a refresh token every time.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeAndSave trades an authorization code for a token and stores it.
func ExchangeAndSave(ctx context.Context, conf *oauth2.Config, store TokenStore, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := store.Save(token); err != nil {
		return nil, err
	}
	return token, nil
}
