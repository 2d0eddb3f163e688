package server

import (
	"net/http"
	"time"

	"previewkit/internal/gateway/handler"
	"previewkit/internal/gateway/handler/rpc"
	"previewkit/internal/gateway/middleware"
	"previewkit/internal/logging"
	"previewkit/internal/metrics"
)

type Handlers struct {
	Compiler  *rpc.CompilerHandler
	Project   *rpc.ProjectHandler
	Assistant *rpc.AssistantHandler
	Stream    *rpc.BuildStreamHandler
	Preview   *handler.PreviewHandler
}

func NewMux(h Handlers, allowedOrigins ...string) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewCompilerServiceHandler(h.Compiler))
	mux.Handle(rpc.NewProjectServiceHandler(h.Project))
	mux.Handle(rpc.NewAssistantServiceHandler(h.Assistant))

	// Browser Handlers
	mux.HandleFunc("GET /ws/build", h.Stream.HandleBuildWS)
	mux.HandleFunc("GET /preview/{id}", h.Preview.HandlePreview)
	mux.HandleFunc("GET /artifacts/{id}/{path...}", h.Preview.HandleArtifact)

	// Ops Handlers
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	// Middleware
	return logging.MiddlewareWith(observe)(middleware.CORS(allowedOrigins...)(mux))
}

func observe(r *http.Request, status int, d time.Duration) {
	pattern := r.Pattern
	if pattern == "" {
		pattern = "unmatched"
	}
	metrics.RecordHTTPRequest(r.Method, pattern, status, d)
}
