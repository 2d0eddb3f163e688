package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"previewkit/internal/artifact"
	"previewkit/internal/cache/buildcache"
	"previewkit/internal/compiler"
	"previewkit/internal/logging"
	"previewkit/internal/preview"
	"previewkit/internal/projectstore"
	"previewkit/internal/vfs"
)

// ErrInvalidInput marks requests whose file set cannot form a snapshot.
var ErrInvalidInput = errors.New("invalid build input")

// Service builds projects and renders their previews. It owns no state of
// its own besides the rendered page cache.
type Service struct {
	compiler  *compiler.Compiler
	projects  projectstore.Store
	artifacts artifact.Store
	pages     *buildcache.Cache[string]
}

type Option func(*Service)

// WithArtifacts enables publishing builds to store.
func WithArtifacts(store artifact.Store) Option {
	return func(s *Service) { s.artifacts = store }
}

// WithPageCache keeps rendered pages addressable by build id.
func WithPageCache(c *buildcache.Cache[string]) Option {
	return func(s *Service) { s.pages = c }
}

func New(c *compiler.Compiler, projects projectstore.Store, opts ...Option) *Service {
	s := &Service{compiler: c, projects: projects}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Input describes one build. Files win over ProjectID; when only ProjectID
// is set the stored project is built.
type Input struct {
	ProjectID  string
	Name       string
	Files      map[string]string
	EntryPoint string
	Options    *compiler.Options
	Publish    bool
}

type Output struct {
	Result    *compiler.Result
	Page      string
	Artifacts []string
	URL       string
}

func (s *Service) Build(ctx context.Context, in Input) (Output, error) {
	snap, name, err := s.snapshot(ctx, in)
	if err != nil {
		return Output{}, err
	}
	opts := compiler.DefaultOptions()
	if in.Options != nil {
		opts = *in.Options
	}

	res := s.compiler.Build(ctx, snap, opts)
	out := Output{Result: res, Page: preview.Render(res, name)}
	s.pages.Set(res.BuildID, out.Page, len(out.Page))

	if in.Publish && s.artifacts != nil {
		paths, err := artifact.Publish(ctx, s.artifacts, res, out.Page)
		if err != nil {
			return out, fmt.Errorf("publish build %s: %w", res.BuildID, err)
		}
		out.Artifacts = paths
		url, err := s.artifacts.GetURL(ctx, res.BuildID, artifact.PagePath)
		if err != nil {
			logging.WithContext(ctx).Warn("artifact url unavailable", zap.String("build_id", res.BuildID), zap.Error(err))
		}
		out.URL = url
	}
	return out, nil
}

// Page returns a page rendered by an earlier build.
func (s *Service) Page(buildID string) (string, bool) {
	return s.pages.Get(buildID)
}

// Artifacts exposes the configured artifact store, nil when publishing is off.
func (s *Service) Artifacts() artifact.Store { return s.artifacts }

func (s *Service) snapshot(ctx context.Context, in Input) (*vfs.Snapshot, string, error) {
	name := strings.TrimSpace(in.Name)
	if len(in.Files) == 0 && strings.TrimSpace(in.ProjectID) != "" {
		p, err := s.projects.Get(ctx, strings.TrimSpace(in.ProjectID))
		if err != nil {
			return nil, "", err
		}
		if name == "" {
			name = p.Name
		}
		if in.EntryPoint != "" {
			p.EntryPoint = in.EntryPoint
		}
		snap, err := projectstore.Snapshot(p)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return snap, name, nil
	}
	snap, err := vfs.FromMap(in.Files)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.EntryPoint != "" {
		snap = snap.WithEntryPoint(in.EntryPoint)
	}
	return snap, name, nil
}
