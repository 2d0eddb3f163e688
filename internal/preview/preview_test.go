package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"previewkit/internal/compiler"
	"previewkit/internal/diag"
)

func success(code string) *compiler.Result {
	return &compiler.Result{Success: true, Code: code, Options: compiler.DefaultOptions()}
}

func TestRenderShell(t *testing.T) {
	out := Render(success(`console.log("hi")`), "My <App> & co")

	assert.Contains(t, out, "<title>My &lt;App&gt; &amp; co</title>")
	assert.Contains(t, out, `<script type="module">console.log("hi")</script>`)
	assert.Contains(t, out, "unhandledrejection")
	assert.Contains(t, out, "parent.postMessage")
	assert.Contains(t, out, `<div id="root"></div>`)
	assert.Less(t, strings.Index(out, "unhandledrejection"), strings.Index(out, `console.log("hi")`))
}

func TestRenderEscapesClosingScript(t *testing.T) {
	out := Render(success(`const s = "</script><script>alert(1)</script>";`), "p")
	assert.NotContains(t, out, `"</script><script>alert(1)`)
	assert.Contains(t, out, `<\/script><script>alert(1)<\/script>`)
}

func TestRenderClassicScriptForIIFE(t *testing.T) {
	res := success("(() => {})()")
	res.Options.Format = compiler.FormatIIFE
	out := Render(res, "p")
	assert.Contains(t, out, "<script>(() => {})()</script>")
}

func TestRenderHTMLEntry(t *testing.T) {
	res := success(`document.body.dataset.ok = "1"`)
	res.Entry = "index.html"
	res.HTML = `<!doctype html><html><head><title>Mine</title>
<script src="https://cdn.example/lib.js"></script></head>
<body><main id="app"></main><script type="module" src="./main.js"></script></body></html>`
	res.Assets = map[string]string{"bundle.css": "main{color:red}", "logo.png": "x"}

	out := Render(res, "ignored")
	assert.Contains(t, out, "<title>Mine</title>")
	assert.Contains(t, out, `<main id="app"></main>`)
	assert.Contains(t, out, `src="https://cdn.example/lib.js"`)
	assert.NotContains(t, out, `src="./main.js"`)
	assert.Contains(t, out, `document.body.dataset.ok = "1"`)
	assert.Contains(t, out, `<style data-source="bundle.css">main{color:red}</style>`)
	assert.NotContains(t, out, "logo.png")
}

func TestRenderStaticHTMLEntry(t *testing.T) {
	res := &compiler.Result{Success: true, Entry: "index.html", HTML: "<h1>static</h1>"}
	out := Render(res, "p")
	assert.Contains(t, out, "<h1>static</h1>")
	assert.Contains(t, out, "unhandledrejection")
}

func TestRenderFailure(t *testing.T) {
	res := &compiler.Result{Diagnostics: []diag.Diagnostic{
		{File: "a.ts", Line: 3, Column: 7, Message: `could not resolve "<./x>"`, Severity: diag.Error},
		{File: "a.ts", Line: 1, Column: 1, Message: "unused", Severity: diag.Warning},
		{Message: "second failure", Severity: diag.Error},
	}}
	out := Render(res, "Demo")
	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "a.ts:3:7: could not resolve &#34;&lt;./x&gt;&#34;")
	assert.Contains(t, out, ":0:0: second failure")
	assert.NotContains(t, out, "unused")
	assert.Contains(t, out, "Demo failed to build (2 errors)")
}

func TestRenderNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		out := Render(nil, "")
		assert.Contains(t, out, "no build result")
		assert.NotContains(t, out, "<script")
	})
	assert.NotPanics(t, func() {
		Render(&compiler.Result{Success: true, HTML: "<<<>>>\x00"}, "x")
	})
}
