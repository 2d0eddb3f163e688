package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"no origin", nil, http.MethodGet, "", http.StatusTeapot, "*"},
		{"reflect any", nil, http.MethodPost, "http://editor.test", http.StatusTeapot, "http://editor.test"},
		{"preflight", nil, http.MethodOptions, "http://editor.test", http.StatusNoContent, "http://editor.test"},
		{"allowed", []string{"http://a.test"}, http.MethodGet, "http://a.test", http.StatusTeapot, "http://a.test"},
		{"foreign", []string{"http://a.test"}, http.MethodGet, "http://b.test", http.StatusTeapot, ""},
		{"foreign preflight", []string{"http://a.test"}, http.MethodOptions, "http://b.test", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed...)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
