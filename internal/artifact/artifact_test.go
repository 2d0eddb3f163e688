package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"previewkit/internal/compiler"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "b1", "/index.html", []byte("<p>")))
	require.NoError(t, s.Put(ctx, "b1", "assets/x.css", []byte("x")))
	require.NoError(t, s.Put(ctx, "b2", "index.html", []byte("other")))

	got, err := s.Get(ctx, "b1", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>", string(got))

	_, err = s.Get(ctx, "b1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	paths, err := s.List(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/x.css", "index.html"}, paths)

	u, err := s.GetURL(ctx, "b1", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "/artifacts/b1/index.html", u)

	assert.Error(t, s.Put(ctx, " ", "a", nil))
	assert.Error(t, s.Put(ctx, "b1", "", nil))
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	res := &compiler.Result{
		BuildID:   "abc",
		Success:   true,
		Code:      "console.log(1)",
		SourceMap: "{}",
		Assets:    map[string]string{"bundle.css": "a{}"},
	}
	paths, err := Publish(ctx, s, res, "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/bundle.css", "bundle.js", "bundle.js.map", "index.html"}, paths)

	page, err := s.Get(ctx, "abc", PagePath)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(page))

	_, err = Publish(ctx, s, &compiler.Result{}, "")
	assert.Error(t, err)
}

func TestS3ConfigValidation(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.Error(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "previews"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, "text/html; charset=utf-8", contentType("index.html"))
}
