package plugin

import (
	"encoding/json"
	"sort"
	"strings"

	"previewkit/internal/loader"
	"previewkit/internal/resolver"
)

// StyleInjector turns stylesheets into script modules that append a <style>
// element when evaluated, so a single script output carries the styles.
type StyleInjector struct{}

func (StyleInjector) Name() string { return "style-injector" }

func (StyleInjector) Resolve(Context, resolver.Request) ResolveOutcome { return Pass() }

func (StyleInjector) Load(ctx Context, path string) LoadOutcome {
	if ctx.Registry.For(path) != loader.Stylesheet {
		return PassLoad()
	}
	f, ok := ctx.Store.Get(path)
	if !ok {
		return PassLoad()
	}
	return Loaded(StyleModule(path, f.Content), loader.Script)
}

// StyleModule is the script that injects css once per document.
func StyleModule(path, css string) string {
	id, _ := json.Marshal(path)
	body, _ := json.Marshal(css)
	var b strings.Builder
	b.WriteString("(() => {\n")
	b.WriteString("  if (typeof document === \"undefined\") return;\n")
	b.WriteString("  const id = " + string(id) + ";\n")
	b.WriteString("  if (document.querySelector(`style[data-source=\"${id}\"]`)) return;\n")
	b.WriteString("  const el = document.createElement(\"style\");\n")
	b.WriteString("  el.setAttribute(\"data-source\", id);\n")
	b.WriteString("  el.textContent = " + string(body) + ";\n")
	b.WriteString("  document.head.appendChild(el);\n")
	b.WriteString("})();\n")
	return b.String()
}

const shimPrefix = "shim:"

// Shims serves fixed module sources for bare specifiers, e.g. browser
// stand-ins for node builtins.
type Shims map[string]string

func (Shims) Name() string { return "shims" }

func (s Shims) Resolve(_ Context, req resolver.Request) ResolveOutcome {
	if _, ok := s[req.Specifier]; ok {
		return Resolved(resolver.VirtualResult(shimPrefix + req.Specifier))
	}
	return Pass()
}

func (s Shims) Load(_ Context, path string) LoadOutcome {
	if !strings.HasPrefix(path, shimPrefix) {
		return PassLoad()
	}
	src, ok := s[strings.TrimPrefix(path, shimPrefix)]
	if !ok {
		return PassLoad()
	}
	return Loaded(src, loader.Script)
}

// Specifiers lists the shimmed specifiers in sorted order.
func (s Shims) Specifiers() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultShims covers the node builtins preview code most often touches.
func DefaultShims() Shims {
	process := `const env = { NODE_ENV: "development" };
const process = { env, browser: true, nextTick: (fn, ...args) => queueMicrotask(() => fn(...args)) };
export { env };
export default process;
`
	return Shims{
		"process":      process,
		"node:process": process,
	}
}
