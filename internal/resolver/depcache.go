package resolver

import (
	"strings"
	"sync"
	"sync/atomic"
)

const DefaultLocatorTemplate = "https://esm.sh/{pkg}"

// DependencyCache memoizes package name -> external locator for the lifetime
// of the process. Concurrent writers for the same key compute the same value,
// and LoadOrStore keeps the first one.
type DependencyCache struct {
	template string
	entries  sync.Map
	size     atomic.Int64
}

// NewDependencyCache uses template to build locators; "{pkg}" is replaced by
// the package key. A template without the placeholder gets the key appended.
func NewDependencyCache(template string) *DependencyCache {
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultLocatorTemplate
	}
	return &DependencyCache{template: template}
}

// Locator returns the cached locator for pkg, computing it on first use.
func (c *DependencyCache) Locator(pkg string) string {
	if v, ok := c.entries.Load(pkg); ok {
		return v.(string)
	}
	v, loaded := c.entries.LoadOrStore(pkg, c.render(pkg))
	if !loaded {
		c.size.Add(1)
	}
	return v.(string)
}

// Lookup returns the locator for pkg without computing one.
func (c *DependencyCache) Lookup(pkg string) (string, bool) {
	v, ok := c.entries.Load(pkg)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *DependencyCache) Len() int { return int(c.size.Load()) }

func (c *DependencyCache) render(pkg string) string {
	if strings.Contains(c.template, "{pkg}") {
		return strings.ReplaceAll(c.template, "{pkg}", pkg)
	}
	return strings.TrimSuffix(c.template, "/") + "/" + pkg
}
