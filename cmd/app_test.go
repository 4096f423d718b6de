package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/google"
)

func TestNewApp_OAuthMode(t *testing.T) {
	cfg := Config{
		CanonicalZone:      "Asia/Kolkata",
		CalendarID:         "primary",
		Policy:             availability.DefaultPolicy(),
		AuthMode:           AuthModeOAuth,
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		TokenFile:          filepath.Join(t.TempDir(), "token.json"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.availability)
	assert.NotNil(t, a.booking)
	require.NotNil(t, a.oauthConf)
	assert.Equal(t, cfg.TokenFile, a.tokens.Path())
	assert.Nil(t, a.redis)

	checks := a.readyChecks()
	require.Contains(t, checks, "google_token")
	assert.ErrorIs(t, checks["google_token"](context.Background()), google.ErrNoToken)
	assert.NotContains(t, checks, "redis")
}

func TestNewApp_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "bad zone",
			cfg:  Config{CanonicalZone: "Mars/Olympus", AuthMode: AuthModeOAuth},
		},
		{
			name: "missing client credentials",
			cfg:  Config{CanonicalZone: "UTC", AuthMode: AuthModeOAuth},
		},
		{
			name: "missing service account key",
			cfg: Config{
				CanonicalZone:      "UTC",
				AuthMode:           AuthModeServiceAccount,
				ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newApp(context.Background(), tt.cfg, logger, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewApp_RedisStore(t *testing.T) {
	cfg := Config{
		CanonicalZone:      "UTC",
		AuthMode:           AuthModeOAuth,
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		TokenFile:          filepath.Join(t.TempDir(), "token.json"),
		RedisAddr:          "127.0.0.1:1",
	}
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)
	require.NoError(t, err)

	require.NotNil(t, a.redis)
	assert.Contains(t, a.readyChecks(), "redis")
	assert.Error(t, a.readyChecks()["redis"](context.Background()), "nothing listens on port 1")
	assert.NoError(t, a.Close())
}
