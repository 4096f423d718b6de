package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ServiceAccountTokenSource builds a JWT token source from a service-account
// key file. subject, when set, is the Workspace user to impersonate.
func ServiceAccountTokenSource(ctx context.Context, keyFile, subject string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	return serviceAccountTokenSource(ctx, data, subject)
}

func serviceAccountTokenSource(ctx context.Context, data []byte, subject string) (oauth2.TokenSource, error) {
	config, err := google.JWTConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	config.Subject = subject
	return config.TokenSource(ctx), nil
}

// NewHTTPClient returns an authenticated client for Google APIs.
//
// Outgoing requests are traced with otelhttp. The base transport is forced to
// HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewHTTPClient(ts oauth2.TokenSource) *http.Client {
	base := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   otelhttp.NewTransport(base),
		},
	}
}
