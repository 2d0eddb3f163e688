// Package resolver decides where an import specifier points: a file in the
// project snapshot, an external module fetched at runtime, or nowhere.
package resolver

import (
	"encoding/json"
	"strings"

	"previewkit/internal/vfs"
)

type Kind int

const (
	Unresolved Kind = iota
	Virtual
	External
)

func (k Kind) String() string {
	switch k {
	case Virtual:
		return "virtual"
	case External:
		return "external"
	default:
		return "unresolved"
	}
}

// Request is a single import to resolve.
type Request struct {
	Importer  string
	Specifier string
}

// Result is a tagged variant: Path is set for Virtual, Locator for External.
type Result struct {
	Kind    Kind
	Path    string
	Locator string
}

func VirtualResult(path string) Result { return Result{Kind: Virtual, Path: path} }
func ExternalResult(locator string) Result { return Result{Kind: External, Locator: locator} }
func UnresolvedResult() Result { return Result{Kind: Unresolved} }
func (r Result) Resolved() bool { return r.Kind != Unresolved }

// ProbeExtensions is the order in which extensionless relative imports are tried.
var ProbeExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".json"}

// Resolver resolves imports against one snapshot. It is safe for concurrent
// use; the only shared state is the DependencyCache.
type Resolver struct {
	store    vfs.Store
	deps     *DependencyCache
	external map[string]struct{}
	versions map[string]string
}

type Option func(*Resolver)

// WithExternal passes the listed specifiers through verbatim as externals.
func WithExternal(specs ...string) Option {
	return func(r *Resolver) {
		for _, s := range specs {
			if s = strings.TrimSpace(s); s != "" {
				r.external[s] = struct{}{}
			}
		}
	}
}

// WithVersions pins package names to version ranges in generated locators.
func WithVersions(v map[string]string) Option {
	return func(r *Resolver) {
		for name, ver := range v {
			r.versions[name] = ver
		}
	}
}

func New(store vfs.Store, deps *DependencyCache, opts ...Option) *Resolver {
	if deps == nil {
		deps = NewDependencyCache("")
	}
	r := &Resolver{
		store:    store,
		deps:     deps,
		external: map[string]struct{}{},
		versions: map[string]string{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve implements the three-step algorithm: exact key, relative probe,
// bare specifier to external locator.
func (r *Resolver) Resolve(req Request) Result {
	spec := req.Specifier
	if r.store.Contains(spec) {
		return VirtualResult(spec)
	}
	if IsRelative(spec) {
		return r.resolveRelative(req.Importer, spec)
	}
	if _, ok := r.external[spec]; ok {
		return ExternalResult(spec)
	}
	if strings.TrimSpace(spec) == "" {
		return UnresolvedResult()
	}
	return ExternalResult(r.locator(spec))
}

func (r *Resolver) resolveRelative(importer, spec string) Result {
	base, ok := vfs.Join(vfs.Dir(importer), spec)
	if !ok {
		return UnresolvedResult()
	}
	for _, candidate := range probes(base) {
		if r.store.Contains(candidate) {
			return VirtualResult(candidate)
		}
	}
	return UnresolvedResult()
}

func probes(base string) []string {
	out := make([]string, 0, 1+2*len(ProbeExtensions))
	index := "index"
	if base != "" {
		out = append(out, base)
		for _, ext := range ProbeExtensions {
			out = append(out, base+ext)
		}
		index = base + "/index"
	}
	for _, ext := range ProbeExtensions {
		out = append(out, index+ext)
	}
	return out
}

func (r *Resolver) locator(spec string) string {
	pkg, sub := SplitPackage(spec)
	key := pkg
	if v := r.versions[pkg]; v != "" {
		key = pkg + "@" + v
	}
	return r.deps.Locator(key) + sub
}

// IsRelative reports whether spec is a "./" or "../" import.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// PackageName returns the top-level package of a bare specifier. Scoped
// packages keep their scope ("@scope/name").
func PackageName(spec string) string {
	pkg, _ := SplitPackage(spec)
	return pkg
}

// SplitPackage splits a bare specifier into package name and subpath (with
// its leading slash).
func SplitPackage(spec string) (string, string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		pkg := parts[0] + "/" + parts[1]
		return pkg, strings.TrimPrefix(spec, pkg)
	}
	if i := strings.Index(spec, "/"); i >= 0 {
		return spec[:i], spec[i:]
	}
	return spec, ""
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// PackageVersions reads dependency ranges from a root package.json, if any.
// A malformed manifest yields nil.
func PackageVersions(store vfs.Store) map[string]string {
	f, ok := store.Get("package.json")
	if !ok {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal([]byte(f.Content), &pkg); err != nil {
		return nil
	}
	out := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name, v := range pkg.DevDependencies {
		out[name] = strings.TrimSpace(v)
	}
	for name, v := range pkg.Dependencies {
		out[name] = strings.TrimSpace(v)
	}
	return out
}
