package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kortlane/ticktick-mcp/internal/instrumentation"
	"github.com/kortlane/ticktick-mcp/internal/logging"
	"github.com/kortlane/ticktick-mcp/internal/server"
	"github.com/kortlane/ticktick-mcp/internal/ticktick"
	"github.com/kortlane/ticktick-mcp/internal/tools/ticktick_tools"
	"github.com/kortlane/ticktick-mcp/internal/views"
)

// serveOptions holds the resolved serve configuration.
type serveOptions struct {
	transport      string
	debug          bool
	httpAddr       string
	yolo           bool
	timezone       string
	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide TickTick task
management tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (creating, updating,
  completing and deleting projects and tasks).

Credentials:
  TICKTICK_ACCESS_TOKEN (required for tool calls)
  TICKTICK_CLIENT_ID, TICKTICK_CLIENT_SECRET, TICKTICK_REFRESH_TOKEN
  (optional; enable automatic token refresh when the access token expires)

Tuning:
  TICKTICK_RATE_LIMIT_DELAY sets the minimum delay between API requests
  in seconds (default 0.2). TICKTICK_TIMEZONE sets the IANA timezone used
  for due date views (default UTC).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr := os.Getenv("METRICS_ADDR"); addr != "" && !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = addr
			}
			if os.Getenv("METRICS_ENABLED") == "false" && !cmd.Flags().Changed("metrics-enabled") {
				opts.metricsEnabled = false
			}
			if opts.timezone == "" {
				opts.timezone = os.Getenv("TICKTICK_TIMEZONE")
			}
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (creating, updating and deleting projects and tasks). Default is read-only mode.")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA timezone for due date views (e.g. Europe/Berlin). Can also use TICKTICK_TIMEZONE env var. Default: UTC.")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The stdio transport owns stdout, so logs always go to stderr.
	logger := logging.New(os.Stderr, opts.debug)

	loc := time.UTC
	if opts.timezone != "" {
		parsed, err := time.LoadLocation(opts.timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
		}
		loc = parsed
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != "stdio" && opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Create the TickTick client. Missing credentials are not fatal at
	// startup: tools return authentication errors and the readiness probe
	// reports not-ready until the operator provides a token.
	cfg := ticktick.ConfigFromEnv()
	var client *ticktick.Client
	if cfg.HasCredentials() {
		client, err = ticktick.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create TickTick client: %w", err)
		}
		client.SetMetrics(provider.Metrics())
	} else {
		logger.Warn("TICKTICK_ACCESS_TOKEN is not set; tools will fail until credentials are configured")
	}

	serverContext := server.NewServerContext(shutdownCtx, client, views.NewEngine(loc), logger)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}
	defer func() {
		if metricsServer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Error("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("ticktick-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		logger.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := ticktick_tools.RegisterTickTickTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register TickTick tools: %w", err)
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.httpAddr, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr string, logger *slog.Logger) error {
	streamableServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamableServer)

	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("streamable HTTP server starting",
		slog.String("addr", addr),
		slog.String("endpoint", "/mcp"),
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
