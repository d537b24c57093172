package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kortlane/ticktick-mcp/internal/instrumentation"
	"github.com/kortlane/ticktick-mcp/internal/ticktick"
	"github.com/kortlane/ticktick-mcp/internal/views"
)

// ServerContext holds the shared state for the MCP server: the TickTick
// client, the view engine, the logger and the metrics recorder. Tool handlers
// receive it at registration time instead of reaching for globals.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	client *ticktick.Client
	views  *views.Engine
	logger *slog.Logger

	mu       sync.RWMutex
	metrics  *instrumentation.Metrics
	shutdown bool
}

// NewServerContext creates a new server context. client may be nil when no
// credentials are configured; tools then fail with an authentication error and
// the readiness probe reports not-ready.
func NewServerContext(ctx context.Context, client *ticktick.Client, engine *views.Engine, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		client: client,
		views:  engine,
		logger: logger,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the shared TickTick client, or nil when credentials were not
// configured.
func (sc *ServerContext) Client() *ticktick.Client {
	return sc.client
}

// Views returns the derived-view engine.
func (sc *ServerContext) Views() *views.Engine {
	return sc.views
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// HasCredentials reports whether a usable token configuration is present.
// This is the readiness signal; no live call is made.
func (sc *ServerContext) HasCredentials() bool {
	return sc.client != nil && sc.client.HasCredentials()
}

// SetMetrics sets the metrics recorder used by tool instrumentation.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil if instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
