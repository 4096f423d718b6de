package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/calendar"
	"github.com/teemow/apptscheduler/internal/google"
	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/timezone"
)

// redisKeyPrefix namespaces idempotency keys in a shared Redis.
const redisKeyPrefix = "apptscheduler:idempotency"

// app holds the wired services shared by the commands.
type app struct {
	cfg    Config
	logger *slog.Logger

	conv         *timezone.Converter
	availability *availability.Service
	booking      *booking.Service

	// oauthConf and tokens are nil in service-account mode.
	oauthConf *oauth2.Config
	tokens    *google.FileTokenStore

	redis *redis.Client
}

// oauthConfig builds the OAuth client config from cfg.
func oauthConfig(cfg Config) (*oauth2.Config, error) {
	return google.NewOAuthConfig(google.OAuthClientConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
}

func tokenStore(cfg Config) *google.FileTokenStore {
	path := cfg.TokenFile
	if path == "" {
		path = google.DefaultTokenPath()
	}
	return google.NewFileTokenStore(path)
}

// newApp wires the calendar client and the two services. metrics and audit
// may be nil.
func newApp(ctx context.Context, cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) (*app, error) {
	conv, err := timezone.NewConverter(cfg.CanonicalZone)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, conv: conv}

	httpClient, err := a.httpClient(ctx, metrics)
	if err != nil {
		return nil, err
	}

	cal, err := calendar.NewClient(ctx, httpClient,
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	var store booking.IdempotencyStore = booking.NewMemoryStore()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = booking.NewRedisStore(a.redis, redisKeyPrefix)
		logger.Info("Using Redis idempotency store", "addr", cfg.RedisAddr)
	}

	a.availability = availability.NewService(conv, cal, availability.Config{
		CalendarID:      cfg.CalendarID,
		Policy:          cfg.Policy,
		UpstreamTimeout: cfg.UpstreamTimeout,
		Logger:          logger,
		Metrics:         metrics,
	})
	a.booking = booking.NewService(conv, cal, booking.Config{
		CalendarID:      cfg.CalendarID,
		Summary:         cfg.EventSummary,
		UpstreamTimeout: cfg.UpstreamTimeout,
		Store:           store,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		Logger:          logger,
		Metrics:         metrics,
		Audit:           audit,
	})

	return a, nil
}

// httpClient returns the authorized client for the configured auth mode.
func (a *app) httpClient(ctx context.Context, metrics *instrumentation.Metrics) (*http.Client, error) {
	switch a.cfg.AuthMode {
	case AuthModeServiceAccount:
		ts, err := google.ServiceAccountTokenSource(ctx, a.cfg.ServiceAccountFile, a.cfg.Impersonate)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Using service account credentials", "impersonate", a.cfg.Impersonate)
		return google.NewHTTPClient(ts), nil
	default:
		conf, err := oauthConfig(a.cfg)
		if err != nil {
			return nil, err
		}
		a.oauthConf = conf
		a.tokens = tokenStore(a.cfg)
		if !a.tokens.HasToken() {
			a.logger.Warn("No Google token stored yet; calendar calls fail until consent completes",
				"token_file", a.tokens.Path())
		}
		return google.NewHTTPClient(google.NewStoreTokenSource(ctx, conf, a.tokens, a.logger, metrics)), nil
	}
}

// readyChecks returns the readiness probes for the wired dependencies.
func (a *app) readyChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if a.tokens != nil {
		tokens := a.tokens
		checks["google_token"] = func(context.Context) error {
			if !tokens.HasToken() {
				return google.ErrNoToken
			}
			return nil
		}
	}
	if a.redis != nil {
		rdb := a.redis
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases the Redis connection pool.
func (a *app) Close() error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
