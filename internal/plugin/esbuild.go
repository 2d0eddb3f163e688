package plugin

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"previewkit/internal/diag"
	"previewkit/internal/resolver"
	"previewkit/internal/vfs"
)

const (
	// Namespace holds every module served from the snapshot.
	Namespace = "virtual"

	stubNamespace = "unresolved"
	stubSource    = "module.exports = {};\n"
)

// ESBuild adapts the pipeline to the bundler's plugin API. Relative imports
// that cannot be resolved are reported through report and replaced by an
// empty module so the rest of the graph is still collected.
func ESBuild(p *Pipeline, report func(diag.Diagnostic)) api.Plugin {
	return api.Plugin{
		Name: "previewkit",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					importer := ""
					if args.Namespace == Namespace {
						importer = args.Importer
					}
					res, _ := p.Resolve(resolver.Request{Importer: importer, Specifier: args.Path})
					switch res.Kind {
					case resolver.Virtual:
						return api.OnResolveResult{Path: res.Path, Namespace: Namespace}, nil
					case resolver.External:
						return api.OnResolveResult{Path: res.Locator, External: true}, nil
					}
					if report != nil {
						report(Unresolved(p.Store(), importer, args.Path))
					}
					return api.OnResolveResult{Path: importer + "|" + args.Path, Namespace: stubNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: Namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					content, kind, ok := p.Load(args.Path)
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("file %q is not part of the project", args.Path)
					}
					return api.OnLoadResult{Contents: &content, Loader: kind.ESBuild()}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: stubNamespace},
				func(api.OnLoadArgs) (api.OnLoadResult, error) {
					src := stubSource
					return api.OnLoadResult{Contents: &src, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// Unresolved builds the diagnostic for a relative import that matched no
// file, pointing at the specifier inside the importer when it can be found.
func Unresolved(store vfs.Store, importer, spec string) diag.Diagnostic {
	d := diag.Errorf(importer, "could not resolve %q", spec)
	if importer == "" {
		d.File = spec
		d.Message = fmt.Sprintf("could not resolve entry point %q", spec)
		return d
	}
	f, ok := store.Get(importer)
	if !ok {
		return d
	}
	for _, q := range []string{`"`, `'`, "`"} {
		if off := strings.Index(f.Content, q+spec+q); off >= 0 {
			d.Line, d.Column = diag.Position(f.Content, off+1)
			break
		}
	}
	return d
}
