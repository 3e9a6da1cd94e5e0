package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"classhub/internal/api"
	"classhub/internal/auth"
	"classhub/internal/config"
	"classhub/internal/database"
	"classhub/internal/hub"
	"classhub/internal/router"
	"classhub/internal/websocket"
	dbconfig "classhub/pkg/database"
)

// Application coordinates all system components.
// Initialization order: Database → Auth → Registry → Router → Hub → HTTP
type Application struct {
	config     *config.Config
	logger     *slog.Logger
	dbManager  *database.Manager
	auth       *auth.Manager
	registry   *websocket.Registry
	router     *router.Router
	hub        *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
	listener   net.Listener
}

// NewApplication builds every component but starts nothing
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dbConfig := dbconfig.DefaultConfig()
	dbConfig.DatabasePath = cfg.Database.Path
	dbConfig.ConnMaxLifetime = cfg.Database.Timeout
	dbConfig.ConnMaxIdleTime = cfg.Database.Timeout / 3

	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	authManager := auth.NewManager(dbManager, cfg.Auth.TokenTTL, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.Timeout)
	defer cancel()
	if err := authManager.EnsureDefaultTeacher(ctx, cfg.Auth.DefaultTeacher, cfg.Auth.DefaultPassword); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to seed teacher account: %w", err)
	}

	registry := websocket.NewRegistry(logger)
	messageRouter := router.NewRouter(cfg.Router.RateLimit)
	messageHub := hub.NewHub(hub.Config{
		SweepInterval:    cfg.Presence.SweepInterval,
		HeartbeatTimeout: cfg.Presence.HeartbeatTimeout,
		StoreTimeout:     cfg.Database.Timeout,
	}, registry, dbManager, logger)

	wsHandler := websocket.NewHandler(registry, messageHub, messageRouter, authManager, logger)
	apiServer := api.NewServer(dbManager, authManager, messageHub, registry, http.HandlerFunc(wsHandler.HandleWebSocket), logger)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           apiServer,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return &Application{
		config:     cfg,
		logger:     logger.With("component", "app"),
		dbManager:  dbManager,
		auth:       authManager,
		registry:   registry,
		router:     messageRouter,
		hub:        messageHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start runs the hub, then binds the listener and serves in the background.
// A bind failure is returned synchronously.
func (app *Application) Start(ctx context.Context) error {
	if err := app.hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		_ = app.hub.Stop()
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	app.listener = listener

	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("HTTP server stopped", "error", err)
		}
	}()

	app.logger.Info("classhub started", "addr", listener.Addr().String(), "database", app.config.Database.Path)
	return nil
}

// Stop shuts down in reverse order: HTTP → Hub → Database
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info("shutting down")

	var errs []error
	if err := app.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.hub.Stop(); err != nil && !errors.Is(err, hub.ErrHubNotRunning) {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	if err := app.dbManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database shutdown: %w", err))
	}

	app.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// Addr returns the bound address once started, else the configured one
func (app *Application) Addr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler exposes the full HTTP surface
func (app *Application) Handler() http.Handler {
	return app.apiServer
}
