// Package gateway exposes the HTTP surface of the agent: the message hook
// that triggers pipeline runs, the per-project agent configuration API, a
// live activity WebSocket, health, and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ronitrai27/looma-agent/internal/engage"
	"github.com/ronitrai27/looma-agent/internal/store"
)

// Responder is the pipeline entry point the hook handler feeds.
type Responder interface {
	HandleNewMessage(ctx context.Context, messageID, projectID string)
}

// Config holds the gateway's HTTP settings.
type Config struct {
	// Bind is the listen address, e.g. ":8080".
	Bind string

	// WebhookSecret enables HMAC-SHA256 verification of message hooks
	// when non-empty.
	WebhookSecret string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Deps are the collaborators the gateway serves.
type Deps struct {
	Responder Responder
	Configs   store.ConfigStore
	Messages  store.MessageStore
	Metrics   *Metrics
	Hub       *Hub
	Logger    *slog.Logger
}

// Gateway is the HTTP server.
type Gateway struct {
	config    Config
	responder Responder
	configs   store.ConfigStore
	builder   *engage.Builder
	metrics   *Metrics
	hub       *Hub
	logger    *slog.Logger
	server    *http.Server
}

// New creates a Gateway from cfg and deps.
func New(cfg Config, deps Deps) *Gateway {
	cfg.defaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:    cfg,
		responder: deps.Responder,
		configs:   deps.Configs,
		builder:   engage.NewBuilder(deps.Messages, logger),
		metrics:   deps.Metrics,
		hub:       deps.Hub,
		logger:    logger.With("component", "gateway"),
	}
}

// Router constructs the chi mux with all routes wired.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
	}
	if g.hub != nil {
		r.Get("/ws/activity", g.hub.ServeHTTP)
	}

	r.Post("/hooks/message", g.handleMessageHook())

	r.Route("/api/projects/{projectID}/agent", func(r chi.Router) {
		r.Get("/", g.handleGetAgentConfig())
		r.Put("/enabled", g.handleToggleAgent())
		r.Patch("/settings", g.handleUpdateSettings())
		r.Post("/preview", g.handlePreview())
	})

	return r
}

// Start begins serving in a background goroutine.
func (g *Gateway) Start() error {
	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.Router(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
