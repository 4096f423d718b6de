package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
)

// StoreTokenSource serves tokens from a TokenStore, refreshing expired ones
// and writing the refreshed token back.
type StoreTokenSource struct {
	ctx     context.Context
	conf    *oauth2.Config
	store   TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu sync.Mutex
}

// NewStoreTokenSource returns a token source backed by store. ctx is used for refresh requests.
func NewStoreTokenSource(ctx context.Context, conf *oauth2.Config, store TokenStore, logger *slog.Logger, metrics *instrumentation.Metrics) *StoreTokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreTokenSource{ctx: ctx, conf: conf, store: store, logger: logger, metrics: metrics}
}

// Token implements oauth2.TokenSource.
func (s *StoreTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if token.Valid() {
		return token, nil
	}

	refreshed, err := s.conf.TokenSource(s.ctx, token).Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)

	if refreshed.AccessToken != token.AccessToken {
		if err := s.store.Save(refreshed); err != nil {
			// The refreshed token is still usable for this call.
			s.logger.Warn("failed to persist refreshed token",
				logging.Operation("oauth.refresh"),
				logging.Err(err))
		}
	}
	return refreshed, nil
}
