package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"previewkit/internal/compiler"
	"previewkit/internal/diag"
	"previewkit/internal/preview"
	"previewkit/internal/resolver"
	"previewkit/internal/scan"
)

type buildFlags struct {
	entry           string
	out             string
	name            string
	config          string
	cdn             string
	target          string
	format          string
	jsx             string
	jsxImportSource string
	external        []string
	minify          bool
	sourcemap       bool
	inlineStyles    bool
	inlineSVG       bool
	json            bool
}

func newBuildCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Build a project directory into a preview page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.entry, "entry", "", "entry file, relative to the project root (default: detected)")
	fl.StringVarP(&f.out, "out", "o", "", "write the preview page to this file")
	fl.StringVar(&f.name, "name", "", "project name shown in the page title (default: directory name)")
	fl.StringVar(&f.config, "config", "", "YAML file with build options")
	fl.StringVar(&f.cdn, "cdn", resolver.DefaultLocatorTemplate, "CDN template for bare imports; {pkg} is replaced by the package")
	fl.StringVar(&f.target, "target", compiler.DefaultTarget, "language target (es2015 .. es2024, esnext)")
	fl.StringVar(&f.format, "format", string(compiler.FormatESM), "output format: esm, cjs or iife")
	fl.StringVar(&f.jsx, "jsx", string(compiler.JSXTransform), "jsx mode: transform or preserve")
	fl.StringVar(&f.jsxImportSource, "jsx-import-source", "", "use the automatic jsx runtime from this package")
	fl.StringSliceVar(&f.external, "external", nil, "specifiers to leave untouched")
	fl.BoolVar(&f.minify, "minify", false, "minify the bundle")
	fl.BoolVar(&f.sourcemap, "sourcemap", false, "emit a source map")
	fl.BoolVar(&f.inlineStyles, "inline-styles", true, "compile stylesheets into the script")
	fl.BoolVar(&f.inlineSVG, "inline-svg", false, "import svg files as markup strings")
	fl.BoolVar(&f.json, "json", false, "print the build result as JSON")
	return cmd
}

func runBuild(cmd *cobra.Command, f *buildFlags, dir string) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	p := newPainter(out)

	snap, err := scan.Dir(dir, scan.Options{Skipped: func(v scan.FileVisit) {
		fmt.Fprintln(cmd.ErrOrStderr(), p.paint(detailStyle, "skipped "+v.Path+" ("+v.Reason+")"))
	}})
	if err != nil {
		return err
	}
	if f.entry != "" {
		snap = snap.WithEntryPoint(f.entry)
	}

	c := compiler.New(nil, compiler.WithDependencyCache(resolver.NewDependencyCache(f.cdn)))
	res := c.Build(context.Background(), snap, opts)

	name := f.name
	if name == "" {
		if abs, err := filepath.Abs(dir); err == nil {
			name = filepath.Base(abs)
		}
	}
	if f.out != "" {
		if err := os.WriteFile(f.out, []byte(preview.Render(res, name)), 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
	}

	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(out, p, res, f.out)
	}
	if !res.Success {
		return errBuildFailed
	}
	return nil
}

// options layers the config file and then explicitly set flags over the
// defaults.
func (f *buildFlags) options(cmd *cobra.Command) (compiler.Options, error) {
	opts := compiler.DefaultOptions()
	if f.config != "" {
		loaded, err := compiler.LoadOptionsFile(f.config)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}
	changed := cmd.Flags().Changed
	if changed("target") {
		opts.Target = f.target
	}
	if changed("format") {
		opts.Format = compiler.Format(f.format)
	}
	if changed("jsx") {
		opts.JSX = compiler.JSXMode(f.jsx)
	}
	if changed("jsx-import-source") {
		opts.JSXImportSource = f.jsxImportSource
	}
	if changed("external") {
		opts.External = f.external
	}
	if changed("minify") {
		opts.Minify = f.minify
	}
	if changed("sourcemap") {
		opts.Sourcemap = f.sourcemap
	}
	if changed("inline-styles") {
		opts.InlineStyles = f.inlineStyles
	}
	if changed("inline-svg") {
		opts.InlineSVG = f.inlineSVG
	}
	return opts, nil
}

func printResult(w io.Writer, p painter, res *compiler.Result, outPath string) {
	for _, d := range res.Diagnostics {
		if d.Severity == diag.Error {
			fmt.Fprintln(w, p.paint(errorStyle, "✗"), diag.Format(d))
		} else {
			fmt.Fprintln(w, p.paint(warningStyle, "!"), diag.Format(d))
		}
	}
	errs, warns := diag.Count(res.Diagnostics)
	if !res.Success {
		fmt.Fprintf(w, "%s %s\n", p.paint(errorStyle, "build failed:"), plural(errs, "error")+", "+plural(warns, "warning"))
		return
	}
	fmt.Fprintf(w, "%s %s in %dms (%d bytes)\n", p.paint(successStyle, "✓ built"), p.paint(pathStyle, res.Entry), res.DurationMS, len(res.Code))
	if len(res.Dependencies) > 0 {
		fmt.Fprintln(w, p.paint(detailStyle, "dependencies: "+strings.Join(res.Dependencies, ", ")))
	}
	if outPath != "" {
		fmt.Fprintln(w, p.paint(detailStyle, "preview: "+outPath))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
