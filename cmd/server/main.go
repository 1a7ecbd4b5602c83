package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/boardbank/internal/api"
	"github.com/mcoot/boardbank/internal/config"
	"github.com/mcoot/boardbank/internal/factory"
)

func main() {
	// Load configuration from .env and the environment
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(factory.ConfigFromEnv(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The journal outlives the signal so Close can drain it
	app.Start(context.Background())
	if cfg.SweepInterval > 0 {
		go app.Controller.RunSweeper(ctx, cfg.SweepInterval)
	}

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Handler(cfg.AllowedOrigins), serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Int("max_players", cfg.MaxPlayers),
		slog.Int64("starting_balance", cfg.StartingBalance))

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	// Drain pending writes before closing storage
	if err := app.Close(); err != nil {
		logger.Error("failed to close application", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	cancel()
	os.Exit(exitCode)
}
