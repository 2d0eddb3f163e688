// Package preview turns a build result into a standalone HTML document for a
// sandboxed frame.
package preview

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"previewkit/internal/compiler"
	"previewkit/internal/diag"
)

// MessageSource tags messages posted to the parent frame.
const MessageSource = "previewkit"

const shell = `<!doctype html><html><head><meta charset="utf-8">` +
	`<meta name="viewport" content="width=device-width, initial-scale=1"><title></title></head>` +
	`<body><div id="root"></div></body></html>`

// runtimeListener forwards uncaught errors and rejections to the console and
// the hosting frame.
var runtimeListener = `(() => {
  const send = (kind, message, stack) => {
    console.error("[preview] " + kind + ":", message);
    try {
      parent.postMessage({ source: "` + MessageSource + `", kind, message: String(message), stack: stack ? String(stack) : "" }, "*");
    } catch (_) {}
  };
  addEventListener("error", (e) => send("error", e.message, e.error && e.error.stack));
  addEventListener("unhandledrejection", (e) => {
    const r = e.reason;
    send("unhandledrejection", r && r.message ? r.message : r, r && r.stack);
  });
})();
`

var (
	closeScriptRe = regexp.MustCompile(`(?i)</(script)`)
	closeStyleRe  = regexp.MustCompile(`(?i)</(style)`)
)

// Render returns the preview document for res. It never panics; anything
// that cannot be rendered as a preview becomes an error page.
func Render(res *compiler.Result, projectName string) (out string) {
	if strings.TrimSpace(projectName) == "" {
		projectName = "Preview"
	}
	defer func() {
		if r := recover(); r != nil {
			out = ErrorPage(projectName, []diag.Diagnostic{diag.Errorf("", "preview rendering failed: %v", r)})
		}
	}()
	if res == nil {
		return ErrorPage(projectName, []diag.Diagnostic{diag.Errorf("", "no build result")})
	}
	if !res.Success {
		return ErrorPage(projectName, res.Errors())
	}
	doc, err := page(res, projectName)
	if err != nil {
		return ErrorPage(projectName, []diag.Diagnostic{diag.Errorf(res.Entry, "preview rendering failed: %v", err)})
	}
	return doc
}

func page(res *compiler.Result, projectName string) (string, error) {
	src := res.HTML
	fromShell := src == ""
	if fromShell {
		src = shell
	}
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html entry: %w", err)
	}
	head := find(root, atom.Head)
	body := find(root, atom.Body)
	if head == nil || body == nil {
		return "", fmt.Errorf("html entry has no head or body")
	}
	if fromShell {
		if title := find(head, atom.Title); title != nil {
			title.AppendChild(&html.Node{Type: html.TextNode, Data: projectName})
		}
	}

	head.InsertBefore(scriptNode(runtimeListener, false), head.FirstChild)
	for _, name := range sortedKeys(res.Assets) {
		if strings.HasSuffix(strings.ToLower(name), ".css") {
			head.AppendChild(styleNode(name, res.Assets[name]))
		}
	}

	if res.Code != "" {
		bundle := scriptNode(res.Code, res.Options.Format == "" || res.Options.Format == compiler.FormatESM)
		if local := firstLocalScript(root); local != nil {
			local.Parent.InsertBefore(bundle, local)
			local.Parent.RemoveChild(local)
		} else {
			body.AppendChild(bundle)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

// ErrorPage lists diagnostics in a readable page that carries no script.
func ErrorPage(projectName string, diags []diag.Diagnostic) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(projectName))
	b.WriteString(" - build failed</title>\n<style>\n")
	b.WriteString("body{margin:0;padding:24px;font:14px/1.5 ui-monospace,SFMono-Regular,Menlo,monospace;background:#1e1e1e;color:#f0f0f0}\n")
	b.WriteString("h1{margin:0 0 16px;font-size:16px;color:#ff6b6b}\n")
	b.WriteString("ol{margin:0;padding-left:20px}\n")
	b.WriteString("li{margin:0 0 12px;white-space:pre-wrap;word-break:break-word}\n")
	b.WriteString("</style></head><body>\n<h1>")
	b.WriteString(html.EscapeString(fmt.Sprintf("%s failed to build (%d %s)", projectName, len(diags), plural(len(diags), "error", "errors"))))
	b.WriteString("</h1>\n<ol>\n")
	for _, d := range diags {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(diag.Format(d)))
		b.WriteString("</li>\n")
	}
	b.WriteString("</ol>\n</body></html>\n")
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func scriptNode(code string, module bool) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	if module {
		n.Attr = []html.Attribute{{Key: "type", Val: "module"}}
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: closeScriptRe.ReplaceAllString(code, `<\/$1`)})
	return n
}

func styleNode(name, css string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "data-source", Val: name}},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: closeStyleRe.ReplaceAllString(css, `<\/$1`)})
	return n
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, a); f != nil {
			return f
		}
	}
	return nil
}

// firstLocalScript is the project's own script reference that the bundle
// replaces.
func firstLocalScript(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, a := range n.Attr {
			if a.Key != "src" {
				continue
			}
			src := strings.TrimSpace(a.Val)
			if src != "" && !strings.Contains(src, "://") && !strings.HasPrefix(src, "//") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := firstLocalScript(c); f != nil {
			return f
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
