// Package compiler orchestrates one build: entry detection, resolution,
// bundling and metadata extraction over a virtual file snapshot.
//
// Build never returns a Go error. Every failure, including a panic inside
// the bundler, ends up as a diagnostic on the Result.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"previewkit/internal/cache/buildcache"
	"previewkit/internal/diag"
	"previewkit/internal/entry"
	"previewkit/internal/loader"
	"previewkit/internal/logging"
	"previewkit/internal/metadata"
	"previewkit/internal/metrics"
	"previewkit/internal/plugin"
	"previewkit/internal/resolver"
	"previewkit/internal/vfs"
)

var ErrBundlerPanic = errors.New("bundler panicked")

// errSharedCancelled marks a shared run whose owner went away mid-build.
var errSharedCancelled = errors.New("shared build cancelled")

// Compiler is a long-lived build handle. It is safe for concurrent use.
type Compiler struct {
	bundler Bundler
	deps    *resolver.DependencyCache
	cache   *buildcache.Cache[*Result]
	log     *zap.Logger
	group   singleflight.Group

	initOnce sync.Once
	initDone chan struct{}
	initErr  error
}

type Option func(*Compiler)

// WithDependencyCache shares a locator cache between compilers.
func WithDependencyCache(d *resolver.DependencyCache) Option {
	return func(c *Compiler) { c.deps = d }
}

// WithCache memoizes results by snapshot and options digest.
func WithCache(bc *buildcache.Cache[*Result]) Option {
	return func(c *Compiler) { c.cache = bc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.log = l }
}

func New(b Bundler, opts ...Option) *Compiler {
	if b == nil {
		b = NewESBuildBundler()
	}
	c := &Compiler{bundler: b, initDone: make(chan struct{})}
	for _, o := range opts {
		o(c)
	}
	if c.deps == nil {
		c.deps = resolver.NewDependencyCache(resolver.DefaultLocatorTemplate)
	}
	if c.log == nil {
		c.log = logging.L()
	}
	return c
}

// Dependencies exposes the locator cache.
func (c *Compiler) Dependencies() *resolver.DependencyCache { return c.deps }

// Init starts bundler initialization if needed and waits for it. Concurrent
// callers share one initialization; a cancelled ctx stops the wait, not the
// initialization itself.
func (c *Compiler) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		go func() {
			defer close(c.initDone)
			defer func() {
				if r := recover(); r != nil {
					c.initErr = fmt.Errorf("%w: %v", ErrBundlerPanic, r)
				}
			}()
			c.initErr = c.bundler.Init(context.WithoutCancel(ctx))
		}()
	})
	select {
	case <-c.initDone:
		return c.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Build compiles snap. Identical concurrent builds share one run and, when a
// cache is configured, repeat builds are served from it. A caller whose ctx
// is live never receives a result cancelled on behalf of another caller.
func (c *Compiler) Build(ctx context.Context, snap *vfs.Snapshot, opts Options) *Result {
	if snap == nil {
		snap, _ = vfs.NewSnapshot()
	}
	opts, warnings := opts.normalize()
	key := cacheKey(snap, opts)

	if cached, ok := c.cache.Get(key); ok {
		metrics.RecordCacheLookup(true)
		res := cached.clone()
		res.BuildID = uuid.NewString()
		res.Cached = true
		res.DurationMS = 0
		metrics.RecordBuild(res.Success, true, 0, len(res.Errors()), len(res.Diagnostics)-len(res.Errors()))
		return res
	}
	if c.cache != nil {
		metrics.RecordCacheLookup(false)
	}

	for {
		ch := c.group.DoChan(key, func() (any, error) {
			res := c.build(ctx, snap, opts, warnings)
			if ctx.Err() != nil {
				return res, errSharedCancelled
			}
			c.cache.Set(key, res, res.Size())
			return res, nil
		})
		select {
		case r := <-ch:
			// A run cancelled by another caller says nothing about this one.
			if r.Err != nil && ctx.Err() == nil {
				continue
			}
			res := r.Val.(*Result).clone()
			if r.Shared {
				res.BuildID = uuid.NewString()
			}
			return res
		case <-ctx.Done():
			return c.build(ctx, snap, opts, warnings)
		}
	}
}

func cacheKey(snap *vfs.Snapshot, opts Options) string {
	sum := sha256.Sum256([]byte(snap.Hash() + "\x00" + opts.Key()))
	return hex.EncodeToString(sum[:])
}

func (c *Compiler) build(ctx context.Context, snap *vfs.Snapshot, opts Options, warnings []diag.Diagnostic) *Result {
	start := time.Now()
	res := &Result{
		BuildID:      uuid.NewString(),
		Options:      opts,
		Dependencies: []string{},
		Imports:      []string{},
		Exports:      []string{},
	}
	res.Diagnostics = append(res.Diagnostics, warnings...)
	defer func() {
		diag.Sort(res.Diagnostics)
		if res.Diagnostics == nil {
			res.Diagnostics = []diag.Diagnostic{}
		}
		res.Success = !diag.HasErrors(res.Diagnostics)
		res.DurationMS = time.Since(start).Milliseconds()
		errs, warns := diag.Count(res.Diagnostics)
		metrics.RecordBuild(res.Success, false, time.Since(start), errs, warns)
		metrics.SetDependencyLocators(c.deps.Len())
		c.log.Debug("build finished",
			zap.String("build_id", res.BuildID),
			zap.String("entry", res.Entry),
			zap.Bool("success", res.Success),
			zap.Int("errors", errs),
			zap.Int("warnings", warns),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	entryPath, ok := entry.Detect(snap)
	if !ok {
		res.Diagnostics = append(res.Diagnostics, diag.Errorf("", "no entry point found: the project has no files"))
		return res
	}
	res.Entry = entryPath
	store := snap.Store()

	script := entryPath
	if entry.IsHTML(entryPath) {
		f, _ := store.Get(entryPath)
		res.HTML = f.Content
		script, ok = entry.ScriptFromHTML(f.Content, entryPath, store)
		if !ok {
			script = ""
		}
	}

	if err := ctx.Err(); err != nil {
		res.Diagnostics = append(res.Diagnostics, cancelled(err))
		return res
	}
	if script != "" {
		if err := c.Init(ctx); err != nil {
			if ctx.Err() != nil {
				res.Diagnostics = append(res.Diagnostics, cancelled(ctx.Err()))
			} else {
				res.Diagnostics = append(res.Diagnostics, diag.Errorf("", "bundler initialization failed: %v", err))
			}
			return res
		}
	}

	var (
		mu          sync.Mutex
		resolveDiag []diag.Diagnostic
		out         BundleOutput
		bundleErr   error
		info        metadata.Info
		deps        []string
	)
	report := func(d diag.Diagnostic) {
		mu.Lock()
		resolveDiag = append(resolveDiag, d)
		mu.Unlock()
	}

	var g errgroup.Group
	if script != "" {
		g.Go(func() error {
			out, bundleErr = c.bundle(ctx, BundleRequest{
				Entry:    script,
				Options:  opts,
				Pipeline: c.pipeline(store, opts),
				Report:   report,
			})
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warn("metadata extraction panicked", zap.Any("panic", r))
			}
		}()
		info = metadata.Project(store)
		deps = metadata.Dependencies(store)
		return nil
	})
	_ = g.Wait()

	if info.Imports != nil {
		res.Imports = info.Imports
	}
	if info.Exports != nil {
		res.Exports = info.Exports
	}
	if deps != nil {
		res.Dependencies = deps
	}

	mu.Lock()
	res.Diagnostics = append(res.Diagnostics, resolveDiag...)
	mu.Unlock()
	res.Diagnostics = append(res.Diagnostics, out.Diagnostics...)
	if bundleErr != nil {
		if ctx.Err() != nil {
			res.Diagnostics = append(res.Diagnostics, cancelled(ctx.Err()))
			return res
		}
		c.log.Error("bundler failed", zap.String("entry", script), zap.Error(bundleErr))
		res.Diagnostics = append(res.Diagnostics, diag.Errorf("", "internal bundler error: %v", bundleErr))
	}

	if err := ctx.Err(); err != nil {
		res.Diagnostics = append(res.Diagnostics, cancelled(err))
		return res
	}
	if diag.HasErrors(res.Diagnostics) {
		return res
	}
	res.Code = out.Code
	res.SourceMap = out.SourceMap
	for name, content := range out.Files {
		ext := loader.Ext(name)
		if ext == "js" || ext == "map" {
			continue
		}
		if res.Assets == nil {
			res.Assets = map[string]string{}
		}
		res.Assets[name] = content
	}
	return res
}

// bundle runs the bundler and turns a panic into an error.
func (c *Compiler) bundle(ctx context.Context, req BundleRequest) (out BundleOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBundlerPanic, r)
		}
	}()
	return c.bundler.Bundle(ctx, req)
}

func (c *Compiler) pipeline(store vfs.Store, opts Options) *plugin.Pipeline {
	res := resolver.New(store, c.deps,
		resolver.WithExternal(opts.External...),
		resolver.WithVersions(resolver.PackageVersions(store)),
	)
	var hooks []plugin.Hook
	if len(opts.Shims) > 0 {
		hooks = append(hooks, plugin.Shims(opts.Shims))
	}
	hooks = append(hooks, plugin.DefaultShims())
	if opts.InlineStyles {
		hooks = append(hooks, plugin.StyleInjector{})
	}
	return plugin.New(store, res, loader.Registry{InlineSVG: opts.InlineSVG}, hooks...)
}

func cancelled(err error) diag.Diagnostic {
	return diag.Errorf("", "build cancelled: %v", err)
}
