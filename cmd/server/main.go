package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/garnizeh/fieldlog/api"
	dbfs "github.com/garnizeh/fieldlog/db"
	"github.com/garnizeh/fieldlog/internal/config"
	"github.com/garnizeh/fieldlog/internal/db"
	"github.com/garnizeh/fieldlog/internal/notify"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting fieldlog server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	// Open database connection
	conn, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open DB", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, conn, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			logger.Error("migration failed", slog.Any("err", err))
			_ = conn.Close()
			os.Exit(1)
		}
	}

	hub := notify.NewHub(cfg.Notifications.SubscriberBuffer, logger)

	handler, err := api.SetupRoutes(cfg, version, buildTime, conn, hub)
	if err != nil {
		logger.Error("failed to set up routes", slog.Any("err", err))
		_ = conn.Close()
		os.Exit(1)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	server.RegisterOnShutdown(hub.Close)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	// Close database connection
	if err := conn.Close(); err != nil {
		logger.Error("error closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
