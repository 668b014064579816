package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/replica"
)

const (
	envLocal = "local"
	envProd  = "production"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("REPLICA_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := replica.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := setupLogger(cfg.Env)
	slog.SetDefault(logger)

	db, err := replica.Open(cfg.DB)
	if err != nil {
		logger.Error("failed to open database", slog.String("driver", cfg.DB.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Only access tokens are verified here, so the other token classes stay unset.
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret: cfg.Auth.AccessSecret,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
	})

	handler := replica.NewHandler(replica.NewStore(db), tokens, logger)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      handler.Router(cfg.Auth.SyncAPIKey),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		logger.Info("starting replica", slog.String("addr", server.Addr), slog.String("driver", cfg.DB.Driver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	logger.Info("replica stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
