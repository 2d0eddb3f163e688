package compiler

import (
	"maps"
	"slices"

	"previewkit/internal/diag"
)

// Result is the outcome of one build. Success is true iff no diagnostic has
// error severity; Code is empty whenever the bundler produced nothing.
type Result struct {
	BuildID      string            `json:"buildId"`
	Success      bool              `json:"success"`
	Entry        string            `json:"entry,omitempty"`
	Code         string            `json:"code"`
	SourceMap    string            `json:"sourceMap,omitempty"`
	Diagnostics  []diag.Diagnostic `json:"diagnostics"`
	Dependencies []string          `json:"dependencies"`
	Imports      []string          `json:"imports"`
	Exports      []string          `json:"exports"`
	// Assets holds non-script outputs such as an extracted stylesheet,
	// keyed by file name.
	Assets map[string]string `json:"assets,omitempty"`
	// HTML is the entry document when the entry is an html file.
	HTML       string  `json:"html,omitempty"`
	Options    Options `json:"options"`
	Cached     bool    `json:"cached"`
	DurationMS int64   `json:"durationMs"`
}

// Errors returns the error-severity diagnostics.
func (r *Result) Errors() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			out = append(out, d)
		}
	}
	return out
}

// Size approximates the memory held by r for cache accounting.
func (r *Result) Size() int {
	n := len(r.Code) + len(r.SourceMap) + len(r.HTML)
	for _, d := range r.Diagnostics {
		n += len(d.File) + len(d.Message)
	}
	for k, v := range r.Assets {
		n += len(k) + len(v)
	}
	return n
}

func (r *Result) clone() *Result {
	cp := *r
	cp.Diagnostics = slices.Clone(r.Diagnostics)
	cp.Dependencies = slices.Clone(r.Dependencies)
	cp.Imports = slices.Clone(r.Imports)
	cp.Exports = slices.Clone(r.Exports)
	cp.Assets = maps.Clone(r.Assets)
	return &cp
}
