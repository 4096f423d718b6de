package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/google"
	"github.com/teemow/apptscheduler/internal/server"
	"github.com/teemow/apptscheduler/internal/timezone"
)

// Auth modes.
const (
	AuthModeOAuth          = "oauth"
	AuthModeServiceAccount = "service-account"
)

// Config is the resolved configuration: flags, then environment, then the
// optional config file, then defaults.
type Config struct {
	HTTPAddr      string
	CanonicalZone string
	CalendarID    string
	Policy        availability.Policy

	UpstreamTimeout time.Duration
	EventSummary    string

	AuthMode           string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	TokenFile          string
	ServiceAccountFile string
	Impersonate        string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	BodyLimitBytes int64

	MetricsEnabled bool
	MetricsAddr    string
	MCPEnabled     bool

	LogLevel  string
	LogFormat string
}

// addCalendarFlags registers the flags every command that talks to the
// calendar needs.
func addCalendarFlags(cmd *cobra.Command) {
	p := availability.DefaultPolicy()
	f := cmd.Flags()

	f.String("canonical-zone", timezone.DefaultCanonicalZone, "Time zone the calendar and working hours are defined in")
	f.String("calendar-id", "primary", "Google Calendar to read busy times from and book into")
	f.Int("work-start-hour", p.WorkStartHour, "First bookable hour of the day in the canonical zone")
	f.Int("work-end-hour", p.WorkEndHour, "Hour at which the working day ends (exclusive)")
	f.Int("slot-step-minutes", p.StepMinutes, "Distance between slot starts in minutes")
	f.Int("default-range-days", p.DefaultRangeDays, "Days searched when no endDate is given")
	f.Duration("upstream-timeout", booking.DefaultUpstreamTimeout, "Timeout for a single Google Calendar call")
	f.String("event-summary", booking.DefaultSummary, "Summary of booked events")

	f.String("auth-mode", AuthModeOAuth, "Google credentials: oauth or service-account")
	f.String("google-client-id", "", "OAuth client id (GOOGLE_CLIENT_ID)")
	f.String("google-client-secret", "", "OAuth client secret (GOOGLE_CLIENT_SECRET)")
	f.String("google-redirect-url", google.DefaultRedirectURL, "OAuth redirect URL registered with Google (GOOGLE_REDIRECT_URL)")
	f.String("token-file", "", "Where the OAuth token is stored (default: XDG data dir)")
	f.String("service-account-file", "", "Service account key JSON for --auth-mode=service-account")
	f.String("impersonate", "", "User to impersonate with domain-wide delegation")

	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
}

// addServeFlags registers the flags only the long-running server uses.
func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.String("http-addr", server.DefaultAddr, "HTTP listen address (PORT is honoured when this is unset)")
	f.String("redis-addr", "", "Redis address for the idempotency store; empty keeps keys in memory")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.Duration("idempotency-ttl", booking.DefaultIdempotencyTTL, "How long an Idempotency-Key is remembered")
	f.Float64("rate-limit-rps", 5, "Requests per second allowed per client IP; 0 disables limiting")
	f.Int("rate-limit-burst", 20, "Burst size of the per-IP limiter")
	f.Duration("request-timeout", server.DefaultRequestTimeout, "Timeout for a single API request")
	f.Int64("body-limit-bytes", server.DefaultBodyLimitBytes, "Maximum request body size")
	f.Bool("metrics-enabled", true, "Serve Prometheus metrics on a dedicated port")
	f.String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	f.Bool("mcp-enabled", true, "Expose the scheduling tools over MCP at /mcp")
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// newViper binds cmd's flags to environment variables (flag "calendar-id"
// reads CALENDAR_ID) and the optional config file.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// loadConfig resolves the Config for cmd.
func loadConfig(cmd *cobra.Command) (Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:      v.GetString("http-addr"),
		CanonicalZone: v.GetString("canonical-zone"),
		CalendarID:    v.GetString("calendar-id"),
		Policy: availability.Policy{
			WorkStartHour:    v.GetInt("work-start-hour"),
			WorkEndHour:      v.GetInt("work-end-hour"),
			StepMinutes:      v.GetInt("slot-step-minutes"),
			DefaultRangeDays: v.GetInt("default-range-days"),
		},
		UpstreamTimeout: v.GetDuration("upstream-timeout"),
		EventSummary:    v.GetString("event-summary"),

		AuthMode:           strings.ToLower(v.GetString("auth-mode")),
		GoogleClientID:     v.GetString("google-client-id"),
		GoogleClientSecret: v.GetString("google-client-secret"),
		GoogleRedirectURL:  v.GetString("google-redirect-url"),
		TokenFile:          v.GetString("token-file"),
		ServiceAccountFile: v.GetString("service-account-file"),
		Impersonate:        v.GetString("impersonate"),

		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		IdempotencyTTL: v.GetDuration("idempotency-ttl"),

		RateLimitRPS:   v.GetFloat64("rate-limit-rps"),
		RateLimitBurst: v.GetInt("rate-limit-burst"),
		RequestTimeout: v.GetDuration("request-timeout"),
		BodyLimitBytes: v.GetInt64("body-limit-bytes"),

		MetricsEnabled: v.GetBool("metrics-enabled"),
		MetricsAddr:    v.GetString("metrics-addr"),
		MCPEnabled:     v.GetBool("mcp-enabled"),

		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
	}

	// PORT is what most PaaS runtimes set.
	if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("http-addr") && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + port
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that would otherwise fail deep inside a request.
func (c Config) Validate() error {
	var errs []error

	switch c.AuthMode {
	case AuthModeOAuth:
	case AuthModeServiceAccount:
		if c.ServiceAccountFile == "" {
			errs = append(errs, fmt.Errorf("--service-account-file is required with --auth-mode=%s", AuthModeServiceAccount))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q (want %s or %s)", c.AuthMode, AuthModeOAuth, AuthModeServiceAccount))
	}

	p := c.Policy
	if p.WorkStartHour < 0 || p.WorkEndHour > 24 || p.WorkStartHour >= p.WorkEndHour {
		errs = append(errs, fmt.Errorf("working hours %d-%d are invalid", p.WorkStartHour, p.WorkEndHour))
	}
	if p.StepMinutes <= 0 {
		errs = append(errs, fmt.Errorf("slot-step-minutes must be positive"))
	}
	if p.DefaultRangeDays < 0 {
		errs = append(errs, fmt.Errorf("default-range-days must not be negative"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("rate-limit-rps must not be negative"))
	}

	return errors.Join(errs...)
}
