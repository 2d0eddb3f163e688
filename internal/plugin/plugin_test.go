package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"previewkit/internal/loader"
	"previewkit/internal/resolver"
	"previewkit/internal/vfs"
)

type recordingHook struct {
	name    string
	resolve map[string]resolver.Result
	load    map[string]string
	calls   *[]string
}

func (h recordingHook) Name() string { return h.name }

func (h recordingHook) Resolve(_ Context, req resolver.Request) ResolveOutcome {
	*h.calls = append(*h.calls, h.name+":resolve")
	if r, ok := h.resolve[req.Specifier]; ok {
		return Resolved(r)
	}
	return Pass()
}

func (h recordingHook) Load(_ Context, path string) LoadOutcome {
	*h.calls = append(*h.calls, h.name+":load")
	if c, ok := h.load[path]; ok {
		return Loaded(c, loader.Script)
	}
	return PassLoad()
}

func newPipeline(t *testing.T, files map[string]string, hooks ...Hook) *Pipeline {
	t.Helper()
	snap, err := vfs.FromMap(files)
	require.NoError(t, err)
	store := snap.Store()
	return New(store, resolver.New(store, resolver.NewDependencyCache("")), loader.Registry{}, hooks...)
}

func TestPipelineFirstClaimWins(t *testing.T) {
	var calls []string
	first := recordingHook{name: "first", calls: &calls, resolve: map[string]resolver.Result{
		"react": resolver.ExternalResult("https://cdn/react-first"),
	}}
	second := recordingHook{name: "second", calls: &calls, resolve: map[string]resolver.Result{
		"react": resolver.ExternalResult("https://cdn/react-second"),
		"vue":   resolver.ExternalResult("https://cdn/vue"),
	}}
	p := newPipeline(t, map[string]string{"a.ts": ""}, first, second)

	got, by := p.Resolve(resolver.Request{Importer: "a.ts", Specifier: "react"})
	assert.Equal(t, "https://cdn/react-first", got.Locator)
	assert.Equal(t, "first", by)
	assert.Equal(t, []string{"first:resolve"}, calls)

	got, by = p.Resolve(resolver.Request{Importer: "a.ts", Specifier: "vue"})
	assert.Equal(t, "https://cdn/vue", got.Locator)
	assert.Equal(t, "second", by)
}

func TestPipelineFallsBackToDefaults(t *testing.T) {
	var calls []string
	hook := recordingHook{name: "noop", calls: &calls}
	p := newPipeline(t, map[string]string{"a.ts": "export {}", "b.json": "{}"}, hook)

	got, by := p.Resolve(resolver.Request{Importer: "a.ts", Specifier: "./b"})
	assert.Equal(t, resolver.VirtualResult("b.json"), got)
	assert.Empty(t, by)

	content, kind, ok := p.Load("b.json")
	require.True(t, ok)
	assert.Equal(t, "{}", content)
	assert.Equal(t, loader.JSON, kind)

	_, _, ok = p.Load("missing.ts")
	assert.False(t, ok)
}

func TestStyleInjector(t *testing.T) {
	p := newPipeline(t, map[string]string{"app.css": "body { color: red; }", "a.ts": ""}, StyleInjector{})

	content, kind, ok := p.Load("app.css")
	require.True(t, ok)
	assert.Equal(t, loader.Script, kind)
	assert.Contains(t, content, `"body { color: red; }"`)
	assert.Contains(t, content, `document.createElement("style")`)

	_, kind, ok = p.Load("a.ts")
	require.True(t, ok)
	assert.Equal(t, loader.TypeScript, kind)
}

func TestShims(t *testing.T) {
	shims := DefaultShims()
	p := newPipeline(t, map[string]string{"a.ts": ""}, shims)

	got, by := p.Resolve(resolver.Request{Importer: "a.ts", Specifier: "process"})
	assert.Equal(t, resolver.VirtualResult("shim:process"), got)
	assert.Equal(t, "shims", by)

	content, kind, ok := p.Load("shim:process")
	require.True(t, ok)
	assert.Equal(t, loader.Script, kind)
	assert.Contains(t, content, "NODE_ENV")
	assert.Equal(t, []string{"node:process", "process"}, shims.Specifiers())
}

func TestUnresolvedDiagnosticLocation(t *testing.T) {
	snap, err := vfs.FromMap(map[string]string{
		"src/a.ts": "import x from './ok'\nimport { y } from \"./missing\"\n",
	})
	require.NoError(t, err)

	d := Unresolved(snap.Store(), "src/a.ts", "./missing")
	assert.Equal(t, "src/a.ts", d.File)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, 20, d.Column)
	assert.Contains(t, d.Message, "./missing")

	d = Unresolved(snap.Store(), "", "nope.ts")
	assert.Equal(t, "nope.ts", d.File)
	assert.Contains(t, d.Message, "entry point")
}
