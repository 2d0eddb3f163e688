package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareLogsAndObserves(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Replace(zap.New(core))
	defer Replace(nil)

	var gotStatus int
	h := MiddlewareWith(func(_ *http.Request, status int, _ time.Duration) { gotStatus = status })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WithContext(r.Context()).Info("inside")
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, gotStatus)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "inside", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "request completed", entries[1].Message)
	assert.EqualValues(t, http.StatusTeapot, entries[1].ContextMap()["status"])
}

func TestInitFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Config{Level: "chatty", Format: "console", Output: "stderr"}))
	defer Replace(nil)
	assert.True(t, L().Core().Enabled(zap.InfoLevel))
	assert.False(t, L().Core().Enabled(zap.DebugLevel))
	SetLevel("debug")
	assert.True(t, L().Core().Enabled(zap.DebugLevel))
	SetLevel("info")
}

func TestWithContextWithoutLogger(t *testing.T) {
	assert.NotNil(t, WithContext(context.Background()))
}
