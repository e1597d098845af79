package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rossirpaulo/agihouse-hackathon/internal/app"
	"github.com/rossirpaulo/agihouse-hackathon/internal/config"
	"github.com/rossirpaulo/agihouse-hackathon/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting retrieval service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"vector_backend", cfg.VectorBackend,
		"embedding_provider", cfg.EmbeddingProvider,
		"reranker_provider", cfg.RerankerProvider,
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	authenticator, err := app.NewAuthenticator(cfg, logger)
	if err != nil {
		return err
	}
	if !authenticator.Enabled() {
		logger.Warn("search endpoint is unauthenticated; set API_KEY or JWT_SECRET")
	}

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		AllowedOrigins:   []string{"*"},
		Searcher:         a.Retrieval,
		Readiness:        a.DB,
		Auth:             authenticator,
		DefaultThreshold: cfg.SearchThreshold,
		DefaultLimit:     cfg.SearchLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.HTTPPort)
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
