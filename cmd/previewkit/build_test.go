package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBuildWritesPreview(t *testing.T) {
	dir := project(t, map[string]string{
		"src/index.ts": `import { greet } from "./greet"; document.body.textContent = greet("cli");`,
		"src/greet.ts": `export const greet = (n: string) => "hello " + n;`,
	})
	page := filepath.Join(t.TempDir(), "preview.html")

	out, err := run(t, "build", dir, "--out", page, "--name", "demo")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ built")
	assert.Contains(t, out, "src/index.ts")

	html, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>demo</title>")
	assert.Contains(t, string(html), "hello ")
}

func TestBuildFailureReportsDiagnostics(t *testing.T) {
	dir := project(t, map[string]string{"index.js": `import x from "./nope"; console.log(x);`})
	page := filepath.Join(t.TempDir(), "preview.html")

	out, err := run(t, "build", dir, "--out", page)
	assert.ErrorIs(t, err, errBuildFailed)
	assert.Contains(t, out, "index.js:1:")
	assert.Contains(t, out, "build failed: 1 error")

	html, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script")
}

func TestBuildOptionsFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("minify: true\nformat: iife\n"), 0o644))

	cmd := newBuildCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", cfg, "--format", "cjs", "--external", "react,vue"}))
	f := &buildFlags{}
	f.config, _ = cmd.Flags().GetString("config")
	f.format, _ = cmd.Flags().GetString("format")
	f.target, _ = cmd.Flags().GetString("target")
	f.jsx, _ = cmd.Flags().GetString("jsx")
	f.external, _ = cmd.Flags().GetStringSlice("external")

	opts, err := f.options(cmd)
	require.NoError(t, err)
	assert.True(t, opts.Minify)
	assert.Equal(t, "cjs", string(opts.Format))
	assert.Equal(t, []string{"react", "vue"}, opts.External)
	assert.True(t, opts.InlineStyles)
}

func TestBuildJSON(t *testing.T) {
	dir := project(t, map[string]string{"main.js": `console.log("json")`})
	out, err := run(t, "build", dir, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, `"entry": "main.js"`)
}
