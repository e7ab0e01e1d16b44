// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/veleda/ansuz/internal/api"
	"github.com/veleda/ansuz/internal/mcpserver"
	"github.com/veleda/ansuz/internal/sse"
	"github.com/veleda/ansuz/internal/storage"
	"github.com/veleda/ansuz/internal/users"
	"github.com/veleda/ansuz/internal/watch"
)

// Run starts the wiki server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger unless one was injected.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("wiki_path", cfg.Wiki.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure subject directory exists.
	if err := os.MkdirAll(cfg.Wiki.Path, 0o755); err != nil {
		return fmt.Errorf("create wiki dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Wiki.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the user database.
	accounts, err := users.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init users: %w", err)
	}
	defer accounts.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := api.NewService(store, accounts, broker, cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	apiRouter := api.NewRouter(svc, cfg.Auth.Secret, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the subject directory for out-of-band edits.
	g.Go(func() error {
		if err := watch.Watch(gCtx, cfg.Wiki.Path, broker, logger); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the wiki over the Model Context Protocol on stdin/stdout.
// Logs go to stderr so they do not corrupt the protocol stream.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Wiki.Path, 0o755); err != nil {
		return fmt.Errorf("create wiki dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Wiki.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	logger.Info("MCP server starting", slog.String("wiki_path", cfg.Wiki.Path))
	return mcpserver.New(store).ServeStdio()
}
