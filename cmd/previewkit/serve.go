package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"previewkit/internal/gateway/app"
	"previewkit/internal/gateway/config"
	"previewkit/internal/logging"
)

func newServeCmd() *cobra.Command {
	v := config.NewViper()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the preview gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
				return err
			}
			defer logging.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			return a.Run(ctx, 5*time.Second)
		},
	}
	cmd.PreRun = func(*cobra.Command, []string) { _ = godotenv.Load() }

	fl := cmd.Flags()
	fl.String("port", "", "listen port or address (env PORT)")
	fl.String("project-store", "", "memory, sqlite or postgres (env PROJECT_STORE)")
	fl.String("project-store-dsn", "", "project store DSN (env PROJECT_STORE_DSN)")
	fl.String("cdn", "", "CDN template for bare imports (env CDN_TEMPLATE)")
	fl.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fl.String("log-format", "", "json or console (env LOG_FORMAT)")
	for key, flag := range map[string]string{
		"port":              "port",
		"project_store":     "project-store",
		"project_store_dsn": "project-store-dsn",
		"cdn_template":      "cdn",
		"log_level":         "log-level",
		"log_format":        "log-format",
	} {
		_ = v.BindPFlag(key, fl.Lookup(flag))
	}
	return cmd
}
