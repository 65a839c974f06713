package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/api"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/app"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogFile)
	slog.SetDefault(logger)

	logger.Info("starting facelocker API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to start face engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("close engine", slog.Any("error", err))
		}
	}()

	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set, /api routes are unauthenticated")
	}

	router := api.NewRouter(logger, &api.Dependencies{
		FaceService:        engine.Service,
		Images:             engine.Gallery,
		DB:                 engine.Gallery,
		APIKey:             cfg.APIKey,
		RecognizeRateLimit: cfg.RecognizeRateLimit,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(shutdownTimeout); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}
