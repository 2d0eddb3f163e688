package compiler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"previewkit/internal/cache/buildcache"
	"previewkit/internal/diag"
	"previewkit/internal/vfs"
)

type fakeBundler struct {
	inits   atomic.Int32
	bundles atomic.Int32
	delay   time.Duration
	panics  bool
	// slow makes Bundle block for that long or until ctx is done.
	slow    time.Duration
	started chan struct{}
}

func (f *fakeBundler) Init(context.Context) error {
	f.inits.Add(1)
	time.Sleep(f.delay)
	return nil
}

func (f *fakeBundler) Bundle(ctx context.Context, req BundleRequest) (BundleOutput, error) {
	f.bundles.Add(1)
	if f.panics {
		panic("boom")
	}
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-ctx.Done():
			return BundleOutput{}, ctx.Err()
		}
	}
	return BundleOutput{Code: "bundled:" + req.Entry}, nil
}

func snap(t *testing.T, files map[string]string) *vfs.Snapshot {
	t.Helper()
	s, err := vfs.FromMap(files)
	require.NoError(t, err)
	return s
}

func TestBuildWithoutFiles(t *testing.T) {
	c := New(&fakeBundler{})
	res := c.Build(context.Background(), snap(t, nil), DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.Error, res.Diagnostics[0].Severity)
	assert.Contains(t, res.Diagnostics[0].Message, "no entry point")
}

func TestInitRunsOnceUnderConcurrency(t *testing.T) {
	fb := &fakeBundler{delay: 20 * time.Millisecond}
	c := New(fb)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := snap(t, map[string]string{"index.js": fmt.Sprint(i)})
			res := c.Build(context.Background(), s, DefaultOptions())
			assert.True(t, res.Success)
			assert.Equal(t, "bundled:index.js", res.Code)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), fb.inits.Load())
	assert.Equal(t, int32(16), fb.bundles.Load())
}

func TestSharedBuildSurvivesOtherCallerCancel(t *testing.T) {
	fb := &fakeBundler{slow: 100 * time.Millisecond, started: make(chan struct{}, 1)}
	c := New(fb)
	s := snap(t, map[string]string{"index.ts": "export const a = 1"})

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	first := make(chan *Result, 1)
	go func() { first <- c.Build(ctxA, s, DefaultOptions()) }()

	select {
	case <-fb.started:
	case <-time.After(2 * time.Second):
		t.Fatal("bundler never started")
	}
	second := make(chan *Result, 1)
	go func() { second <- c.Build(context.Background(), s, DefaultOptions()) }()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	a := <-first
	assert.False(t, a.Success)
	assert.Contains(t, a.Diagnostics[0].Message, "cancelled")

	b := <-second
	require.True(t, b.Success, "%v", b.Diagnostics)
	assert.Equal(t, "bundled:index.ts", b.Code)
	assert.Equal(t, []string{"a"}, b.Exports)
}

func TestCancelledBundleKeepsMetadata(t *testing.T) {
	fb := &fakeBundler{slow: time.Second, started: make(chan struct{}, 1)}
	c := New(fb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-fb.started
		cancel()
	}()
	res := c.build(ctx, snap(t, map[string]string{
		"index.ts": `import React from "react"; export const a = 1`,
	}), DefaultOptions(), nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	assert.Equal(t, []string{"react"}, res.Dependencies)
	assert.Equal(t, []string{"a"}, res.Exports)
	assert.Contains(t, res.Errors()[0].Message, "cancelled")
}

func TestInitWaitHonorsContext(t *testing.T) {
	c := New(&fakeBundler{delay: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Init(ctx), context.DeadlineExceeded)
	assert.NoError(t, c.Init(context.Background()))
}

func TestBundlerPanicBecomesDiagnostic(t *testing.T) {
	c := New(&fakeBundler{panics: true})
	res := c.Build(context.Background(), snap(t, map[string]string{"index.ts": "export {}"}), DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0].Message, "internal bundler error")
}

func TestCancelledBuild(t *testing.T) {
	fb := &fakeBundler{}
	c := New(fb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.Build(ctx, snap(t, map[string]string{"index.ts": "export {}"}), DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	assert.Contains(t, res.Diagnostics[0].Message, "cancelled")
	assert.Zero(t, fb.bundles.Load())
}

func TestBuildCache(t *testing.T) {
	fb := &fakeBundler{}
	c := New(fb, WithCache(buildcache.New[*Result](8, 0, time.Minute)))
	s := snap(t, map[string]string{"index.ts": "export {}"})

	first := c.Build(context.Background(), s, DefaultOptions())
	second := c.Build(context.Background(), s, DefaultOptions())
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, int32(1), fb.bundles.Load())

	opts := DefaultOptions()
	opts.Minify = true
	c.Build(context.Background(), s, opts)
	assert.Equal(t, int32(2), fb.bundles.Load())
}

func TestUnknownTargetWarns(t *testing.T) {
	c := New(&fakeBundler{})
	opts := DefaultOptions()
	opts.Target = "es1999"
	res := c.Build(context.Background(), snap(t, map[string]string{"index.ts": "export {}"}), opts)
	assert.True(t, res.Success)
	assert.Equal(t, DefaultTarget, res.Options.Target)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.Warning, res.Diagnostics[0].Severity)
}

func TestStaticHTMLEntry(t *testing.T) {
	fb := &fakeBundler{}
	c := New(fb)
	res := c.Build(context.Background(), snap(t, map[string]string{"index.html": "<h1>hi</h1>"}), DefaultOptions())
	assert.True(t, res.Success)
	assert.Equal(t, "index.html", res.Entry)
	assert.Equal(t, "<h1>hi</h1>", res.HTML)
	assert.Empty(t, res.Code)
	assert.Zero(t, fb.bundles.Load())
}

func TestOptionsJSONKeepsDefaults(t *testing.T) {
	var opts Options
	require.NoError(t, opts.UnmarshalJSON([]byte(`{"minify":true}`)))
	assert.True(t, opts.Minify)
	assert.True(t, opts.InlineStyles)
	assert.Equal(t, FormatESM, opts.Format)
	assert.Equal(t, DefaultTarget, opts.Target)
}

func esbuild(t *testing.T, files map[string]string, opts Options) *Result {
	t.Helper()
	return New(NewESBuildBundler()).Build(context.Background(), snap(t, files), opts)
}

func TestESBuildExternalPackage(t *testing.T) {
	res := esbuild(t, map[string]string{
		"index.js": `import React from "react"; console.log(React);`,
	}, DefaultOptions())
	require.True(t, res.Success, "%v", res.Diagnostics)
	assert.Contains(t, res.Code, "https://esm.sh/react")
	assert.Equal(t, []string{"react"}, res.Dependencies)
	assert.Equal(t, []string{"a"}, res.Exports)
	assert.Contains(t, res.Errors()[0].Message, "cancelled")
}

func TestESBuildUnresolvedRelativeImport(t *testing.T) {
	res := esbuild(t, map[string]string{
		"a.ts": `import x from "./missing"; console.log(x);`,
	}, DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "a.ts", errs[0].File)
	assert.Equal(t, 1, errs[0].Line)
	assert.Contains(t, errs[0].Message, "./missing")
}

func TestESBuildSyntaxError(t *testing.T) {
	res := esbuild(t, map[string]string{"index.ts": "const = ;"}, DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	errs := res.Errors()
	require.NotEmpty(t, errs)
	assert.Equal(t, "index.ts", errs[0].File)
	assert.Equal(t, 1, errs[0].Line)
	assert.GreaterOrEqual(t, errs[0].Column, 1)
}

func TestESBuildAppEntry(t *testing.T) {
	res := esbuild(t, map[string]string{
		"App.tsx":    `import "./styles.css"; export default function App() { return <div>hi</div>; }`,
		"styles.css": `body { color: red; }`,
	}, DefaultOptions())
	require.True(t, res.Success, "%v", res.Diagnostics)
	assert.Equal(t, "App.tsx", res.Entry)
	assert.Contains(t, res.Code, "createElement")
	assert.Contains(t, res.Code, "data-source")
	assert.Equal(t, []string{"default"}, res.Exports)
	assert.Empty(t, res.Assets)
}

func TestESBuildStylesheetAsset(t *testing.T) {
	opts := DefaultOptions()
	opts.InlineStyles = false
	res := esbuild(t, map[string]string{
		"index.js": `import "./a.css"; console.log("x");`,
		"a.css":    `.a { color: blue; }`,
	}, opts)
	require.True(t, res.Success, "%v", res.Diagnostics)
	require.Contains(t, res.Assets, "bundle.css")
	assert.Contains(t, res.Assets["bundle.css"], "blue")
}

func TestESBuildHTMLEntry(t *testing.T) {
	res := esbuild(t, map[string]string{
		"index.html": `<div id="root"></div><script type="module" src="./main.js"></script>`,
		"main.js":    `import { msg } from "./msg"; document.body.append(msg);`,
		"msg.js":     `export const msg = "hello from msg";`,
	}, DefaultOptions())
	require.True(t, res.Success, "%v", res.Diagnostics)
	assert.Equal(t, "index.html", res.Entry)
	assert.Contains(t, res.HTML, `id="root"`)
	assert.Contains(t, res.Code, "hello from msg")
}

func TestESBuildIsIdempotent(t *testing.T) {
	files := map[string]string{
		"index.ts": `import { add } from "./math"; export const out = add(1, 2);`,
		"math.ts":  `export const add = (a: number, b: number) => a + b;`,
	}
	a := esbuild(t, files, DefaultOptions())
	b := esbuild(t, files, DefaultOptions())
	require.True(t, a.Success, "%v", a.Diagnostics)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Diagnostics, b.Diagnostics)
	assert.Equal(t, a.Imports, b.Imports)
	assert.True(t, strings.Contains(a.Code, "add"))
}

func TestESBuildSourcemap(t *testing.T) {
	opts := DefaultOptions()
	opts.Sourcemap = true
	res := esbuild(t, map[string]string{"index.js": `console.log("map me");`}, opts)
	require.True(t, res.Success, "%v", res.Diagnostics)
	assert.Contains(t, res.SourceMap, `"mappings"`)
}
