package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"gopkg.in/yaml.v3"

	"previewkit/internal/diag"
)

type Format string

const (
	FormatESM  Format = "esm"
	FormatCJS  Format = "cjs"
	FormatIIFE Format = "iife"
)

type JSXMode string

const (
	JSXTransform JSXMode = "transform"
	JSXPreserve  JSXMode = "preserve"
)

const DefaultTarget = "es2020"

// Options configures one build.
type Options struct {
	Minify    bool     `json:"minify" yaml:"minify"`
	Sourcemap bool     `json:"sourcemap" yaml:"sourcemap"`
	Target    string   `json:"target" yaml:"target"`
	Format    Format   `json:"format" yaml:"format"`
	External  []string `json:"external,omitempty" yaml:"external"`
	JSX       JSXMode  `json:"jsx" yaml:"jsx"`
	// JSXImportSource switches transform mode to the automatic runtime
	// imported from this package.
	JSXImportSource string `json:"jsxImportSource,omitempty" yaml:"jsxImportSource"`
	// InlineStyles compiles stylesheets into the script bundle. When off,
	// css is emitted as a separate asset.
	InlineStyles bool              `json:"inlineStyles" yaml:"inlineStyles"`
	InlineSVG    bool              `json:"inlineSvg,omitempty" yaml:"inlineSvg"`
	Define       map[string]string `json:"define,omitempty" yaml:"define"`
	Shims        map[string]string `json:"shims,omitempty" yaml:"shims"`
}

func DefaultOptions() Options {
	return Options{
		Target:       DefaultTarget,
		Format:       FormatESM,
		JSX:          JSXTransform,
		InlineStyles: true,
		Define: map[string]string{
			"process.env.NODE_ENV": `"development"`,
		},
	}
}

// UnmarshalJSON decodes over DefaultOptions so omitted fields keep their
// defaults.
func (o *Options) UnmarshalJSON(b []byte) error {
	type plain Options
	out := plain(DefaultOptions())
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*o = Options(out)
	return nil
}

// LoadOptionsFile reads options from a YAML file over the defaults.
func LoadOptionsFile(path string) (Options, error) {
	opts := DefaultOptions()
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	return opts, nil
}

// normalize fills empty fields with defaults and turns unknown values into
// warnings.
func (o Options) normalize() (Options, []diag.Diagnostic) {
	var warnings []diag.Diagnostic
	o.Target = strings.ToLower(strings.TrimSpace(o.Target))
	if o.Target == "" {
		o.Target = DefaultTarget
	}
	if _, ok := targets[o.Target]; !ok {
		warnings = append(warnings, diag.Warnf("", "unknown target %q, using %s", o.Target, DefaultTarget))
		o.Target = DefaultTarget
	}
	switch Format(strings.ToLower(string(o.Format))) {
	case "", FormatESM:
		o.Format = FormatESM
	case FormatCJS, "commonjs":
		o.Format = FormatCJS
	case FormatIIFE:
		o.Format = FormatIIFE
	default:
		warnings = append(warnings, diag.Warnf("", "unknown format %q, using esm", o.Format))
		o.Format = FormatESM
	}
	switch JSXMode(strings.ToLower(string(o.JSX))) {
	case "", JSXTransform:
		o.JSX = JSXTransform
	case JSXPreserve:
		o.JSX = JSXPreserve
	default:
		warnings = append(warnings, diag.Warnf("", "unknown jsx mode %q, using transform", o.JSX))
		o.JSX = JSXTransform
	}
	return o, warnings
}

// Key is a stable digest of the options for cache lookups.
func (o Options) Key() string {
	raw, _ := json.Marshal(o)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

func (o Options) esbuildTarget() api.Target {
	if t, ok := targets[o.Target]; ok {
		return t
	}
	return api.ES2020
}

func (o Options) esbuildFormat() api.Format {
	switch o.Format {
	case FormatCJS:
		return api.FormatCommonJS
	case FormatIIFE:
		return api.FormatIIFE
	default:
		return api.FormatESModule
	}
}

func (o Options) esbuildJSX() api.JSX {
	switch {
	case o.JSX == JSXPreserve:
		return api.JSXPreserve
	case o.JSXImportSource != "":
		return api.JSXAutomatic
	default:
		return api.JSXTransform
	}
}
