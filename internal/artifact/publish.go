package artifact

import (
	"context"
	"fmt"
	"sort"

	"previewkit/internal/compiler"
)

const (
	PagePath      = "index.html"
	BundlePath    = "bundle.js"
	SourceMapPath = "bundle.js.map"
)

// Publish writes the rendered page and every build output under the build
// id and returns the stored paths in sorted order.
func Publish(ctx context.Context, store Store, res *compiler.Result, page string) ([]string, error) {
	if res == nil || res.BuildID == "" {
		return nil, fmt.Errorf("publish: build id is required")
	}
	files := map[string]string{PagePath: page}
	if res.Code != "" {
		files[BundlePath] = res.Code
	}
	if res.SourceMap != "" {
		files[SourceMapPath] = res.SourceMap
	}
	for name, content := range res.Assets {
		files["assets/"+name] = content
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := store.Put(ctx, res.BuildID, p, []byte(files[p])); err != nil {
			return nil, fmt.Errorf("publish %s: %w", p, err)
		}
	}
	return paths, nil
}
