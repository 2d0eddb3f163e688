// Package artifact persists published preview builds: the rendered page, the
// bundle and its side outputs, addressed by build id.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store defines operations for persisting build artifacts.
type Store interface {
	Put(ctx context.Context, buildID, path string, content []byte) error
	Get(ctx context.Context, buildID, path string) ([]byte, error)
	GetURL(ctx context.Context, buildID, path string) (string, error)
	List(ctx context.Context, buildID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

func objectKey(buildID, path string) string {
	return strings.TrimSpace(buildID) + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

func checkKey(buildID, path string) error {
	if strings.TrimSpace(buildID) == "" {
		return fmt.Errorf("build_id is required")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
