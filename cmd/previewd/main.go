package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"previewkit/internal/gateway/app"
	"previewkit/internal/gateway/config"
	"previewkit/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", zap.Error(err))
	}
	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		logging.Fatal("failed to init logging", zap.Error(err))
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to initialize app", zap.Error(err))
	}
	if err := a.Run(ctx, 5*time.Second); err != nil {
		logging.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	logging.Info("server exiting")
}
