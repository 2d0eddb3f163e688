package rpc

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"previewkit/internal/artifact"
	"previewkit/internal/assistant"
	"previewkit/internal/gateway/service/build"
	"previewkit/internal/projectstore"
)

// toConnectError maps domain errors onto connect codes. Errors that are
// already connect errors pass through.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	code := connect.CodeInternal
	switch {
	case errors.Is(err, projectstore.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, build.ErrInvalidInput):
		code = connect.CodeInvalidArgument
	case errors.Is(err, assistant.ErrRateLimited):
		code = connect.CodeResourceExhausted
	case errors.Is(err, assistant.ErrQuotaExhausted):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, assistant.ErrGateway):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}
	return connect.NewError(code, err)
}

var errFilesOrProject = errors.New("files or projectId is required")
