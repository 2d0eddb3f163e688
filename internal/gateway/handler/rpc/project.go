package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"previewkit/internal/projectstore"
)

const (
	ProjectServiceName     = "previewkit.v1.ProjectService"
	ProjectSaveProcedure   = "/" + ProjectServiceName + "/Save"
	ProjectGetProcedure    = "/" + ProjectServiceName + "/Get"
	ProjectListProcedure   = "/" + ProjectServiceName + "/List"
	ProjectDeleteProcedure = "/" + ProjectServiceName + "/Delete"
)

type SaveProjectRequest struct {
	Project projectstore.Project `json:"project"`
}

type ProjectRequest struct {
	ProjectID string `json:"projectId"`
}

type ProjectResponse struct {
	Project projectstore.Project `json:"project"`
}

type ListProjectsRequest struct{}

type ListProjectsResponse struct {
	Projects []projectstore.Project `json:"projects"`
}

type DeleteProjectResponse struct{}

type ProjectHandler struct {
	store projectstore.Store
}

func NewProjectHandler(store projectstore.Store) *ProjectHandler {
	return &ProjectHandler{store: store}
}

func (h *ProjectHandler) Save(ctx context.Context, req *connect.Request[SaveProjectRequest]) (*connect.Response[ProjectResponse], error) {
	p, err := h.store.Put(ctx, req.Msg.Project)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProjectResponse{Project: p}), nil
}

func (h *ProjectHandler) Get(ctx context.Context, req *connect.Request[ProjectRequest]) (*connect.Response[ProjectResponse], error) {
	id := strings.TrimSpace(req.Msg.ProjectID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("projectId is required"))
	}
	p, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProjectResponse{Project: p}), nil
}

func (h *ProjectHandler) List(ctx context.Context, _ *connect.Request[ListProjectsRequest]) (*connect.Response[ListProjectsResponse], error) {
	ps, err := h.store.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListProjectsResponse{Projects: ps}), nil
}

func (h *ProjectHandler) Delete(ctx context.Context, req *connect.Request[ProjectRequest]) (*connect.Response[DeleteProjectResponse], error) {
	id := strings.TrimSpace(req.Msg.ProjectID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("projectId is required"))
	}
	if err := h.store.Delete(ctx, id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteProjectResponse{}), nil
}

func NewProjectServiceHandler(h *ProjectHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(HandlerOptions(), opts...)
	mux := http.NewServeMux()
	mux.Handle(ProjectSaveProcedure, connect.NewUnaryHandler(ProjectSaveProcedure, h.Save, opts...))
	mux.Handle(ProjectGetProcedure, connect.NewUnaryHandler(ProjectGetProcedure, h.Get, opts...))
	mux.Handle(ProjectListProcedure, connect.NewUnaryHandler(ProjectListProcedure, h.List, opts...))
	mux.Handle(ProjectDeleteProcedure, connect.NewUnaryHandler(ProjectDeleteProcedure, h.Delete, opts...))
	return "/" + ProjectServiceName + "/", mux
}
