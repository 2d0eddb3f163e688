package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	write(t, root, "index.html", "<div></div>")
	write(t, root, "src/main.ts", "export {}")
	write(t, root, "src/logo.svg", "<svg/>")
	write(t, root, "node_modules/react/index.js", "ignored")
	write(t, root, ".git/HEAD", "ignored")
	write(t, root, "img/photo.png", "binary")
	write(t, root, "big.js", "0123456789abcdef")

	var skipped []string
	snap, err := Dir(root, Options{MaxFileSize: 12, Skipped: func(f FileVisit) {
		skipped = append(skipped, f.Path)
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html", "src/logo.svg", "src/main.ts"}, snap.Store().Paths())
	assert.ElementsMatch(t, []string{"img/photo.png", "big.js"}, skipped)
	f, ok := snap.Store().Get("src/main.ts")
	require.True(t, ok)
	assert.Equal(t, "export {}", f.Content)
}

func TestDirRejectsFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.js", "x")
	_, err := Dir(filepath.Join(root, "a.js"), Options{})
	assert.Error(t, err)
	_, err = Dir(filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)
}
