// Package entry picks the root module of a build.
package entry

import (
	"strings"

	"golang.org/x/net/html"

	"previewkit/internal/loader"
	"previewkit/internal/vfs"
)

// Candidates is the fixed priority list probed when no override is set.
var Candidates = []string{
	"index.html",
	"index.tsx",
	"index.ts",
	"index.jsx",
	"index.js",
	"src/index.tsx",
	"src/index.ts",
	"src/index.jsx",
	"src/index.js",
	"App.tsx",
	"App.ts",
	"main.tsx",
	"main.ts",
}

// Detect returns the override when present in the snapshot, then the first
// candidate found, then the first script file in path order, then the first
// file at all. ok is false only for an empty snapshot.
func Detect(snap *vfs.Snapshot) (string, bool) {
	if snap == nil {
		return "", false
	}
	store := snap.Store()
	if p := snap.EntryPoint; p != "" && store.Contains(p) {
		return p, true
	}
	for _, c := range Candidates {
		if store.Contains(c) {
			return c, true
		}
	}
	paths := store.Paths()
	if len(paths) == 0 {
		return "", false
	}
	var reg loader.Registry
	for _, p := range paths {
		if reg.For(p).IsScript() {
			return p, true
		}
	}
	return paths[0], true
}

// IsHTML reports whether path is an html document.
func IsHTML(path string) bool {
	ext := loader.Ext(path)
	return ext == "html" || ext == "htm"
}

// ScriptFromHTML finds the first local module script referenced by an html
// entry and resolves it against the document's directory.
func ScriptFromHTML(doc, htmlPath string, store vfs.Store) (string, bool) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", false
	}
	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "script" {
			if src, ok := localScript(n, htmlPath, store); ok {
				found = src
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found, found != ""
}

func localScript(n *html.Node, htmlPath string, store vfs.Store) (string, bool) {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "//") {
		return "", false
	}
	var p string
	var ok bool
	if strings.HasPrefix(src, "/") {
		p, ok = vfs.Normalize(src)
	} else {
		p, ok = vfs.Join(vfs.Dir(htmlPath), src)
	}
	if !ok || !store.Contains(p) {
		return "", false
	}
	return p, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
