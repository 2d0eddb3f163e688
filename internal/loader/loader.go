// Package loader maps file extensions to the transformation the bundler
// applies to them.
package loader

import (
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Kind is the transformation applied to a file based on its extension.
type Kind int

const (
	Text Kind = iota
	Script
	TypeScript
	JSX
	TSX
	Stylesheet
	JSON
	DataURL
)

var kindNames = map[Kind]string{
	Text:       "raw-text",
	Script:     "script",
	TypeScript: "typescript",
	JSX:        "jsx",
	TSX:        "tsx",
	Stylesheet: "stylesheet",
	JSON:       "json",
	DataURL:    "data-url",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "raw-text"
}

// IsScript reports whether k is parsed as a JavaScript-family module.
func (k Kind) IsScript() bool {
	switch k {
	case Script, TypeScript, JSX, TSX:
		return true
	}
	return false
}

// ESBuild maps k onto the bundler's loader.
func (k Kind) ESBuild() api.Loader {
	switch k {
	case Script:
		return api.LoaderJS
	case TypeScript:
		return api.LoaderTS
	case JSX:
		return api.LoaderJSX
	case TSX:
		return api.LoaderTSX
	case Stylesheet:
		return api.LoaderCSS
	case JSON:
		return api.LoaderJSON
	case DataURL:
		return api.LoaderDataURL
	default:
		return api.LoaderText
	}
}

var table = map[string]Kind{
	"html":  Text,
	"htm":   Text,
	"css":   Stylesheet,
	"js":    Script,
	"mjs":   Script,
	"cjs":   Script,
	"ts":    TypeScript,
	"jsx":   JSX,
	"tsx":   TSX,
	"json":  JSON,
	"png":   DataURL,
	"jpg":   DataURL,
	"jpeg":  DataURL,
	"gif":   DataURL,
	"svg":   DataURL,
	"woff":  DataURL,
	"woff2": DataURL,
	"ttf":   DataURL,
	"eot":   DataURL,
}

// Registry selects a Kind per path. The zero value is ready to use.
type Registry struct {
	// InlineSVG loads svg files as raw text for inline injection instead of
	// data URLs.
	InlineSVG bool
}

// For returns the Kind for path. Unknown extensions fall back to Text.
func (r Registry) For(path string) Kind {
	ext := Ext(path)
	if ext == "svg" && r.InlineSVG {
		return Text
	}
	if k, ok := table[ext]; ok {
		return k
	}
	return Text
}

// Ext is the lowercase suffix after the last "." of the final path segment.
func Ext(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}
