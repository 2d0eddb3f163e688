// Package plugin composes resolve/load hooks in front of the default
// resolver and loader registry. Hooks are consulted in order and the first
// one that claims a request wins.
package plugin

import (
	"previewkit/internal/loader"
	"previewkit/internal/resolver"
	"previewkit/internal/vfs"
)

// ResolveOutcome is either a pass or a claimed resolution.
type ResolveOutcome struct {
	claimed bool
	result  resolver.Result
}

func Pass() ResolveOutcome { return ResolveOutcome{} }

func Resolved(r resolver.Result) ResolveOutcome {
	return ResolveOutcome{claimed: true, result: r}
}

func (o ResolveOutcome) Claimed() bool           { return o.claimed }
func (o ResolveOutcome) Result() resolver.Result { return o.result }

// LoadOutcome is either a pass or loaded module content.
type LoadOutcome struct {
	claimed bool
	content string
	kind    loader.Kind
}

func PassLoad() LoadOutcome { return LoadOutcome{} }

func Loaded(content string, kind loader.Kind) LoadOutcome {
	return LoadOutcome{claimed: true, content: content, kind: kind}
}

func (o LoadOutcome) Claimed() bool     { return o.claimed }
func (o LoadOutcome) Content() string   { return o.content }
func (o LoadOutcome) Kind() loader.Kind { return o.kind }

// Context is the read-only build state handed to hooks.
type Context struct {
	Store    vfs.Store
	Registry loader.Registry
}

// Hook may claim resolution of a specifier or loading of a path.
type Hook interface {
	Name() string
	Resolve(ctx Context, req resolver.Request) ResolveOutcome
	Load(ctx Context, path string) LoadOutcome
}

// Pipeline runs hooks before falling back to the default resolver and
// loader registry.
type Pipeline struct {
	hooks    []Hook
	ctx      Context
	resolver *resolver.Resolver
}

func New(store vfs.Store, res *resolver.Resolver, reg loader.Registry, hooks ...Hook) *Pipeline {
	return &Pipeline{
		hooks:    hooks,
		ctx:      Context{Store: store, Registry: reg},
		resolver: res,
	}
}

// Resolve returns the first claimed result and the name of the hook that
// claimed it ("" when the default resolver answered).
func (p *Pipeline) Resolve(req resolver.Request) (resolver.Result, string) {
	for _, h := range p.hooks {
		if out := h.Resolve(p.ctx, req); out.Claimed() {
			return out.Result(), h.Name()
		}
	}
	return p.resolver.Resolve(req), ""
}

// Load returns module content and loader kind for path. ok is false when
// neither a hook nor the store can provide it.
func (p *Pipeline) Load(path string) (content string, kind loader.Kind, ok bool) {
	for _, h := range p.hooks {
		if out := h.Load(p.ctx, path); out.Claimed() {
			return out.Content(), out.Kind(), true
		}
	}
	f, found := p.ctx.Store.Get(path)
	if !found {
		return "", loader.Text, false
	}
	return f.Content, p.ctx.Registry.For(path), true
}

// Store exposes the read-only file view the pipeline runs over.
func (p *Pipeline) Store() vfs.Store { return p.ctx.Store }
