package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"previewkit/internal/assistant"
	"previewkit/internal/gateway/service/build"
	"previewkit/internal/metrics"
)

const (
	AssistantServiceName      = "previewkit.v1.AssistantService"
	AssistantChatProcedure    = "/" + AssistantServiceName + "/Chat"
	AssistantExplainProcedure = "/" + AssistantServiceName + "/ExplainBuild"
)

type ChatRequest struct {
	Messages []assistant.Message `json:"messages"`
	Model    string              `json:"model,omitempty"`
}

type ChatResponse struct {
	Message assistant.Message `json:"message"`
	Model   string            `json:"model"`
}

// ExplainBuildRequest builds the given project and asks the assistant about
// its diagnostics.
type ExplainBuildRequest struct {
	Build    BuildRequest `json:"build"`
	Question string       `json:"question,omitempty"`
}

type ExplainBuildResponse struct {
	BuildID string            `json:"buildId"`
	Success bool              `json:"success"`
	Message assistant.Message `json:"message"`
}

type AssistantHandler struct {
	client assistant.Client
	builds *build.Service
}

// NewAssistantHandler accepts a nil client; every call then fails with
// Unimplemented.
func NewAssistantHandler(client assistant.Client, builds *build.Service) *AssistantHandler {
	return &AssistantHandler{client: client, builds: builds}
}

func (h *AssistantHandler) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	if h.client == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("assistant is not configured"))
	}
	if len(req.Msg.Messages) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("messages are required"))
	}
	resp, err := h.chat(ctx, assistant.ChatRequest{Messages: req.Msg.Messages, Model: strings.TrimSpace(req.Msg.Model)})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ChatResponse{Message: resp.Message, Model: resp.Model}), nil
}

func (h *AssistantHandler) ExplainBuild(ctx context.Context, req *connect.Request[ExplainBuildRequest]) (*connect.Response[ExplainBuildResponse], error) {
	if h.client == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("assistant is not configured"))
	}
	in := req.Msg.Build
	if len(in.Files) == 0 && in.ProjectID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errFilesOrProject)
	}
	in.Publish = false
	out, err := h.builds.Build(ctx, toInput(&in))
	if err != nil {
		return nil, toConnectError(err)
	}
	resp, err := h.chat(ctx, assistant.DiagnosticsRequest(out.Result, req.Msg.Question))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExplainBuildResponse{
		BuildID: out.Result.BuildID,
		Success: out.Result.Success,
		Message: resp.Message,
	}), nil
}

func (h *AssistantHandler) chat(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error) {
	resp, err := h.client.Chat(ctx, req)
	metrics.RecordAssistantRequest(h.client.Name(), err == nil)
	return resp, err
}

func NewAssistantServiceHandler(h *AssistantHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(HandlerOptions(), opts...)
	mux := http.NewServeMux()
	mux.Handle(AssistantChatProcedure, connect.NewUnaryHandler(AssistantChatProcedure, h.Chat, opts...))
	mux.Handle(AssistantExplainProcedure, connect.NewUnaryHandler(AssistantExplainProcedure, h.ExplainBuild, opts...))
	return "/" + AssistantServiceName + "/", mux
}
