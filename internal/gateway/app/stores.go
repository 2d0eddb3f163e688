package app

import (
	"fmt"

	"go.uber.org/zap"

	"previewkit/internal/artifact"
	"previewkit/internal/gateway/config"
	"previewkit/internal/logging"
	"previewkit/internal/projectstore"
)

type gatewayStores struct {
	projects  projectstore.Store
	artifacts artifact.Store
}

func initStores(cfg *config.Config) (*gatewayStores, error) {
	projects, err := projectstore.Open(cfg.ProjectStore.Kind, cfg.ProjectStore.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open project store: %w", err)
	}
	logging.Info("project store ready", zap.String("kind", cfg.ProjectStore.Kind))

	artifacts, err := initArtifactStore(cfg)
	if err != nil {
		_ = projects.Close()
		return nil, err
	}
	return &gatewayStores{projects: projects, artifacts: artifacts}, nil
}

func initArtifactStore(cfg *config.Config) (artifact.Store, error) {
	if !cfg.Artifact.Enabled {
		logging.Info("artifact store: memory")
		return artifact.NewMemoryStore(), nil
	}
	s3Cfg := artifact.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	}
	store, err := artifact.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
	}
	logging.Info("artifact store: s3", zap.String("bucket", s3Cfg.Bucket), zap.String("endpoint", s3Cfg.Endpoint))
	return store, nil
}
