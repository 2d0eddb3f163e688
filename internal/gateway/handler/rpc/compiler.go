package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"previewkit/internal/compiler"
	"previewkit/internal/gateway/service/build"
)

const (
	CompilerServiceName    = "previewkit.v1.CompilerService"
	CompilerBuildProcedure = "/" + CompilerServiceName + "/Build"
)

type BuildRequest struct {
	ProjectID  string            `json:"projectId,omitempty"`
	Name       string            `json:"name,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
	EntryPoint string            `json:"entryPoint,omitempty"`
	Options    *compiler.Options `json:"options,omitempty"`
	Publish    bool              `json:"publish,omitempty"`
}

type BuildResponse struct {
	Result     *compiler.Result `json:"result"`
	Preview    string           `json:"preview"`
	PreviewURL string           `json:"previewUrl,omitempty"`
	Artifacts  []string         `json:"artifacts,omitempty"`
}

type CompilerHandler struct {
	svc *build.Service
}

func NewCompilerHandler(svc *build.Service) *CompilerHandler {
	return &CompilerHandler{svc: svc}
}

// Build compiles the request's files, or the stored project when only a
// project id is given. A failed build is a successful RPC carrying
// diagnostics.
func (h *CompilerHandler) Build(ctx context.Context, req *connect.Request[BuildRequest]) (*connect.Response[BuildResponse], error) {
	if len(req.Msg.Files) == 0 && req.Msg.ProjectID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errFilesOrProject)
	}
	out, err := h.svc.Build(ctx, toInput(req.Msg))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&BuildResponse{
		Result:     out.Result,
		Preview:    out.Page,
		PreviewURL: out.URL,
		Artifacts:  out.Artifacts,
	}), nil
}

func toInput(msg *BuildRequest) build.Input {
	return build.Input{
		ProjectID:  msg.ProjectID,
		Name:       msg.Name,
		Files:      msg.Files,
		EntryPoint: msg.EntryPoint,
		Options:    msg.Options,
		Publish:    msg.Publish,
	}
}

// NewCompilerServiceHandler returns the mount path and handler.
func NewCompilerServiceHandler(h *CompilerHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(HandlerOptions(), opts...)
	mux := http.NewServeMux()
	mux.Handle(CompilerBuildProcedure, connect.NewUnaryHandler(CompilerBuildProcedure, h.Build, opts...))
	return "/" + CompilerServiceName + "/", mux
}
