package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"previewkit/internal/assistant"
	"previewkit/internal/cache/buildcache"
	"previewkit/internal/compiler"
	"previewkit/internal/gateway/config"
	"previewkit/internal/gateway/handler"
	"previewkit/internal/gateway/handler/rpc"
	"previewkit/internal/gateway/server"
	"previewkit/internal/gateway/service/build"
	"previewkit/internal/logging"
	"previewkit/internal/resolver"
)

const pageCacheSize = 256

type App struct {
	server  *server.Server
	handler http.Handler
	closers []func() error
}

// New wires the gateway from cfg. The caller owns the returned App and must
// Shutdown it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	stores, err := initStores(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, stores.projects.Close)

	comp := compiler.New(compiler.NewESBuildBundler(),
		compiler.WithDependencyCache(resolver.NewDependencyCache(cfg.Build.CDNTemplate)),
		compiler.WithCache(buildcache.New[*compiler.Result](cfg.Build.CacheSize, cfg.Build.CacheBytes, cfg.Build.CacheTTL)),
		compiler.WithLogger(logging.L().Named("compiler")),
	)
	// Warm the bundler in the background; builds wait on the same init.
	go func() {
		if err := comp.Init(context.WithoutCancel(ctx)); err != nil {
			logging.Error("bundler init failed", zap.Error(err))
		}
	}()

	buildSvc := build.New(comp, stores.projects,
		build.WithArtifacts(stores.artifacts),
		build.WithPageCache(buildcache.New[string](pageCacheSize, cfg.Build.CacheBytes, cfg.Build.CacheTTL)),
	)

	client, err := initAssistant(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if client != nil {
		a.closers = append(a.closers, client.Close)
	}

	a.handler = server.NewMux(server.Handlers{
		Compiler:  rpc.NewCompilerHandler(buildSvc),
		Project:   rpc.NewProjectHandler(stores.projects),
		Assistant: rpc.NewAssistantHandler(client, buildSvc),
		Stream:    rpc.NewBuildStreamHandler(buildSvc),
		Preview:   handler.NewPreviewHandler(buildSvc),
	})
	a.server = server.New(cfg.Port, a.handler)
	return a, nil
}

// Handler is the fully wrapped mux, for tests and embedding.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.close())
}

// Run serves until ctx is done or the server fails, then shuts down within
// grace.
func (a *App) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("shutting down gateway")
	case serveErr = <-errCh:
		if serveErr != nil {
			logging.Error("server error", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func initAssistant(ctx context.Context, cfg *config.Config) (assistant.Client, error) {
	if !cfg.AssistantEnabled() {
		logging.Info("assistant disabled")
		return nil, nil
	}
	ac := cfg.Assistant
	client, err := assistant.New(ctx, ac.Provider, ac.APIKey, ac.BaseURL, ac.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assistant: %w", err)
	}
	switch c := client.(type) {
	case *assistant.OpenAIClient:
		c.WithRateLimit(ac.RPS, ac.Burst)
	case *assistant.GeminiClient:
		c.WithRateLimit(ac.RPS, ac.Burst)
	}
	logging.Info("assistant enabled", zap.String("client", client.Name()))
	return client, nil
}
