package compiler

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"previewkit/internal/diag"
	"previewkit/internal/plugin"
)

// BundleRequest is everything a bundler needs for one build.
type BundleRequest struct {
	Entry    string
	Options  Options
	Pipeline *plugin.Pipeline
	// Report receives diagnostics raised during resolution. It may be called
	// from several goroutines.
	Report func(diag.Diagnostic)
}

// BundleOutput carries bundler output. Diagnostics must already use
// 1-based positions and project-relative file names.
type BundleOutput struct {
	Code        string
	SourceMap   string
	Files       map[string]string
	Diagnostics []diag.Diagnostic
}

// Bundler is the black-box bundling primitive. Init is called at most once
// per Compiler before the first Bundle.
type Bundler interface {
	Init(ctx context.Context) error
	Bundle(ctx context.Context, req BundleRequest) (BundleOutput, error)
}

const outfile = "bundle.js"

// ESBuildBundler bundles with esbuild's in-process API.
type ESBuildBundler struct{}

func NewESBuildBundler() *ESBuildBundler { return &ESBuildBundler{} }

// Init runs a trivial transform to confirm the bundler is usable.
func (ESBuildBundler) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := api.Transform("export const ready = true", api.TransformOptions{
		Loader:   api.LoaderJS,
		LogLevel: api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return fmt.Errorf("esbuild init: %s", res.Errors[0].Text)
	}
	return nil
}

func (ESBuildBundler) Bundle(ctx context.Context, req BundleRequest) (BundleOutput, error) {
	if err := ctx.Err(); err != nil {
		return BundleOutput{}, err
	}
	opts := req.Options
	build := api.BuildOptions{
		EntryPoints:       []string{req.Entry},
		Bundle:            true,
		Write:             false,
		Outfile:           outfile,
		Platform:          api.PlatformBrowser,
		Format:            opts.esbuildFormat(),
		Target:            opts.esbuildTarget(),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		JSX:               opts.esbuildJSX(),
		JSXImportSource:   opts.JSXImportSource,
		Define:            opts.Define,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{plugin.ESBuild(req.Pipeline, req.Report)},
	}
	if opts.Sourcemap {
		build.Sourcemap = api.SourceMapExternal
	}
	res := api.Build(build)

	out := BundleOutput{Files: map[string]string{}}
	out.Diagnostics = append(out.Diagnostics, convertMessages(res.Errors, diag.Error)...)
	out.Diagnostics = append(out.Diagnostics, convertMessages(res.Warnings, diag.Warning)...)
	if len(res.Errors) > 0 {
		return out, nil
	}
	for _, f := range res.OutputFiles {
		name := path.Base(strings.ReplaceAll(f.Path, "\\", "/"))
		switch {
		case strings.HasSuffix(name, ".map"):
			if name == outfile+".map" {
				out.SourceMap = string(f.Contents)
			}
		case name == outfile:
			out.Code = string(f.Contents)
		default:
			out.Files[name] = string(f.Contents)
		}
	}
	return out, nil
}

func convertMessages(msgs []api.Message, sev diag.Severity) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := diag.Diagnostic{Message: m.Text, Severity: sev}
		if loc := m.Location; loc != nil {
			d.File = stripNamespace(loc.File, loc.Namespace)
			if loc.Line > 0 {
				d.Line = loc.Line
				d.Column = loc.Column + 1
			}
		}
		out = append(out, d)
	}
	return out
}

func stripNamespace(file, ns string) string {
	if ns != "" {
		file = strings.TrimPrefix(file, ns+":")
	}
	return strings.TrimPrefix(file, plugin.Namespace+":")
}
