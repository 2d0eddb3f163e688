package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"previewkit/internal/artifact"
	"previewkit/internal/gateway/service/build"
	"previewkit/internal/logging"
	"previewkit/internal/projectstore"
)

// previewCSP keeps the page in an opaque origin: scripts run but cannot reach
// the embedding application.
const previewCSP = "sandbox allow-scripts"

type PreviewHandler struct {
	svc *build.Service
}

func NewPreviewHandler(svc *build.Service) *PreviewHandler {
	return &PreviewHandler{svc: svc}
}

// HandlePreview serves GET /preview/{id}. The id is either a recent build or
// a stored project, which is then built on the spot.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if page, ok := h.svc.Page(id); ok {
		writePage(w, page)
		return
	}
	out, err := h.svc.Build(r.Context(), build.Input{ProjectID: id})
	if errors.Is(err, projectstore.ErrNotFound) {
		http.Error(w, "preview not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.WithContext(r.Context()).Error("preview build failed", zap.String("project_id", id), zap.Error(err))
		http.Error(w, "preview failed", http.StatusInternalServerError)
		return
	}
	writePage(w, out.Page)
}

// HandleArtifact serves GET /artifacts/{id}/{path...} from the artifact
// store.
func (h *PreviewHandler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	store := h.svc.Artifacts()
	if store == nil {
		http.Error(w, "artifacts are disabled", http.StatusNotFound)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	p := strings.TrimSpace(r.PathValue("path"))
	if id == "" || p == "" {
		http.Error(w, "id and path are required", http.StatusBadRequest)
		return
	}
	body, err := store.Get(r.Context(), id, p)
	if errors.Is(err, artifact.ErrNotFound) {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.WithContext(r.Context()).Error("artifact read failed", zap.String("build_id", id), zap.String("path", p), zap.Error(err))
		http.Error(w, "artifact read failed", http.StatusInternalServerError)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if p == artifact.PagePath {
		w.Header().Set("Content-Security-Policy", previewCSP)
	}
	_, _ = w.Write(body)
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func writePage(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", previewCSP)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}
