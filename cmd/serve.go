package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
	"github.com/teemow/apptscheduler/internal/server"
	"github.com/teemow/apptscheduler/internal/tools/scheduling_tools"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduling API",
		Long: `Serve the appointment scheduling API.

With the default http transport the server exposes:
  POST /check_availability   free slots in a date range
  POST /save_booking         book a slot (honours Idempotency-Key)
  GET  /list_events          upcoming events
  GET  /                     start the Google consent flow (oauth mode)
  GET  /redirect             OAuth callback
  /mcp                       the same operations as MCP tools
  /healthz, /readyz          probes

Prometheus metrics are served on --metrics-addr.

With --transport stdio only the MCP tools are served, over stdin/stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", TransportHTTP, "Transport: http or stdio")
	addCalendarFlags(cmd)
	addServeFlags(cmd)
	return cmd
}

func runServe(parent context.Context, cfg Config, transport string) error {
	if transport != TransportHTTP && transport != TransportStdio {
		return fmt.Errorf("unsupported transport %q (supported: %s, %s)", transport, TransportHTTP, TransportStdio)
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the MCP stream in stdio mode; logs always go to stderr.
	logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if transport == TransportStdio || !cfg.MetricsEnabled {
		instrConfig.MetricsExporter = instrumentation.ExporterNone
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	a, err := newApp(ctx, cfg, logger, provider.Metrics(), provider.Audit())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Error during shutdown", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("apptscheduler", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, scheduling_tools.Deps{
		Availability: a.availability,
		Booking:      a.booking,
		Metrics:      provider.Metrics(),
		Logger:       logger,
	}); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	if transport == TransportStdio {
		return runStdioServer(mcpSrv)
	}
	return runHTTPServer(ctx, cfg, a, mcpSrv, provider, logger)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, cfg Config, a *app, mcpSrv *mcpserver.MCPServer, provider *instrumentation.Provider, logger *slog.Logger) error {
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(provider.Metrics()),
	}
	if a.oauthConf != nil {
		opts = append(opts, server.WithOAuth(server.NewOAuthHandler(a.oauthConf, a.tokens, logger, provider.Metrics())))
	}
	if cfg.MCPEnabled {
		opts = append(opts, server.WithMCP(mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
		)))
	}

	srv := server.New(server.Config{
		Addr:           cfg.HTTPAddr,
		RequestTimeout: cfg.RequestTimeout,
		BodyLimitBytes: cfg.BodyLimitBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, server.NewAPI(a.availability, a.booking, logger), opts...)

	for name, check := range a.readyChecks() {
		srv.Health().AddCheck(name, check)
	}

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	serverDone := make(chan error, 2)
	go func() { serverDone <- srv.Start() }()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				serverDone <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	logger.Info("Scheduler started",
		"addr", cfg.HTTPAddr,
		logging.Calendar(cfg.CalendarID),
		logging.TimeZone(cfg.CanonicalZone),
		"auth_mode", cfg.AuthMode,
		"mcp", cfg.MCPEnabled)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	errs := []error{runErr}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}
