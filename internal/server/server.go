package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/apptscheduler/internal/instrumentation"
)

// Defaults for Config.
const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultBodyLimitBytes = 1 << 20
)

// Config holds the public listener settings.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	BodyLimitBytes int64

	// RateLimitRPS <= 0 disables the per-IP limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records HTTP request metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOAuth mounts the consent flow at / and /redirect.
func WithOAuth(h *OAuthHandler) Option {
	return func(s *Server) { s.oauth = h }
}

// WithMCP mounts a streamable-HTTP MCP handler at /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithHealth replaces the default health checker.
func WithHealth(h *HealthChecker) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// Server is the public HTTP listener: scheduling API, OAuth bootstrap,
// health probes and the optional MCP endpoint.
type Server struct {
	cfg     Config
	api     *API
	oauth   *OAuthHandler
	mcp     http.Handler
	health  *HealthChecker
	limiter *RateLimiter
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server. Zero Config fields take defaults.
func New(cfg Config, api *API, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = DefaultBodyLimitBytes
	}

	s := &Server{
		cfg:    cfg,
		api:    api,
		health: NewHealthChecker(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger)
	return s
}

// Health returns the checker behind /healthz and /readyz.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler builds the full middleware stack. Health probes skip the rate limiter.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	limited := s.limiter.Middleware()
	s.api.Register(mux,
		limited,
		WithBodyLimit(s.cfg.BodyLimitBytes),
		WithTimeout(s.cfg.RequestTimeout),
	)

	if s.oauth != nil {
		s.oauth.Register(mux, limited)
	}

	if s.mcp != nil {
		// Streaming responses: no TimeoutHandler here.
		mux.Handle("/mcp", Chain(s.mcp, limited, WithBodyLimit(s.cfg.BodyLimitBytes)))
	}

	s.health.RegisterHealthEndpoints(mux)

	h := Chain(mux,
		WithRequestID,
		WithAccessLog(s.logger, s.metrics),
	)
	return otelhttp.NewHandler(h, "apptscheduler")
}

// Start listens on cfg.Addr and serves until Shutdown. It returns nil after
// a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("http server starting", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once serving, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown fails readiness first, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("http server stopping")
	return srv.Shutdown(ctx)
}
