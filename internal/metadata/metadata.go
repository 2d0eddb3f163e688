// Package metadata scans source text for import and export statements.
//
// The scan is a pattern match over raw text, not a parse. It only feeds
// displayed metadata, so a missed or garbled match never affects a build.
package metadata

import (
	"regexp"
	"sort"
	"strings"

	"previewkit/internal/loader"
	"previewkit/internal/resolver"
	"previewkit/internal/vfs"
)

// Info is the import/export summary of one file or a whole project.
type Info struct {
	Imports []string `json:"imports"`
	Exports []string `json:"exports"`
}

var (
	importFromRe    = regexp.MustCompile(`(?m)\bimport\s+(?:type\s+)?[\w*${}\s,]+?\s+from\s*['"]([^'"\n]+)['"]`)
	importBareRe    = regexp.MustCompile(`(?m)\bimport\s*['"]([^'"\n]+)['"]`)
	exportFromRe    = regexp.MustCompile(`(?m)\bexport\s+(?:type\s+)?(?:\*|\*\s+as\s+\w+|\{[^}]*\})\s*from\s*['"]([^'"\n]+)['"]`)
	dynamicImportRe = regexp.MustCompile(`\bimport\(\s*['"]([^'"\n]+)['"]\s*\)`)
	requireRe       = regexp.MustCompile(`\brequire\(\s*['"]([^'"\n]+)['"]\s*\)`)

	exportDeclRe  = regexp.MustCompile(`(?m)^\s*export\s+(?:declare\s+)?(default|const|let|var|function\*?|async\s+function\*?|class|abstract\s+class|interface|type|enum)\s*([A-Za-z_$][\w$]*)?`)
	exportListRe  = regexp.MustCompile(`(?m)^\s*export\s+(?:type\s+)?\{([^}]*)\}(\s*from\b)?`)
	exportAliasRe = regexp.MustCompile(`^\s*(?:type\s+)?([\w$]+)(?:\s+as\s+([\w$]+))?\s*$`)
)

// Extract returns the deduplicated, sorted import specifiers and exported
// names found in source.
func Extract(source string) Info {
	imports := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{importFromRe, importBareRe, exportFromRe, dynamicImportRe, requireRe} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			if spec := strings.TrimSpace(m[1]); spec != "" {
				imports[spec] = struct{}{}
			}
		}
	}

	exports := map[string]struct{}{}
	for _, m := range exportDeclRe.FindAllStringSubmatch(source, -1) {
		switch {
		case m[1] == "default":
			exports["default"] = struct{}{}
		case m[2] != "":
			exports[m[2]] = struct{}{}
		}
	}
	for _, m := range exportListRe.FindAllStringSubmatch(source, -1) {
		for _, item := range strings.Split(m[1], ",") {
			am := exportAliasRe.FindStringSubmatch(item)
			if am == nil {
				continue
			}
			name := am[1]
			if am[2] != "" {
				name = am[2]
			}
			exports[name] = struct{}{}
		}
	}
	return Info{Imports: sorted(imports), Exports: sorted(exports)}
}

// Project unions Extract over every script file in the store.
func Project(store vfs.Store) Info {
	imports := map[string]struct{}{}
	exports := map[string]struct{}{}
	var reg loader.Registry
	for _, f := range store.All() {
		if !reg.For(f.Path).IsScript() {
			continue
		}
		info := Extract(f.Content)
		for _, s := range info.Imports {
			imports[s] = struct{}{}
		}
		for _, s := range info.Exports {
			exports[s] = struct{}{}
		}
	}
	return Info{Imports: sorted(imports), Exports: sorted(exports)}
}

// Dependencies returns the top-level package names of every non-relative
// import across the project's script files.
func Dependencies(store vfs.Store) []string {
	deps := map[string]struct{}{}
	for _, spec := range Project(store).Imports {
		if resolver.IsRelative(spec) || strings.HasPrefix(spec, "/") || strings.Contains(spec, "://") {
			continue
		}
		if store.Contains(spec) {
			continue
		}
		if name := resolver.PackageName(spec); name != "" {
			deps[name] = struct{}{}
		}
	}
	return sorted(deps)
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
