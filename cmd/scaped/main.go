// Package main is the entry point for the scape server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/scape/internal/config"
	"github.com/Faultbox/scape/internal/logger"
	"github.com/Faultbox/scape/internal/roster"
	"github.com/Faultbox/scape/internal/web"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitFromConfig(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== scape server ===",
		zap.String("addr", cfg.Server.Addr),
		zap.String("rooms", cfg.Rooms.Dir))
	logger.Sugar.Debugf("Config: %+v", cfg)

	if _, err := os.Stat(cfg.Rooms.Dir); err != nil {
		logger.Warn("rooms directory not readable, model requests will fail", zap.Error(err))
	}

	store := roster.New()
	if err := store.Seed(cfg.Rooms.Seed); err != nil {
		logger.Error("seeding roster", zap.Error(err))
		os.Exit(1)
	}
	snap := store.Snapshot()
	logger.Info("roster seeded",
		zap.Int("devices", len(snap.Devices)),
		zap.Int("participants", len(snap.Participants)))

	srv := web.New(cfg, store, logger.Named("web"), web.Options{
		AccessLog: logger.Writer("access"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
