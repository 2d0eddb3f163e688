// Package projectstore persists editor projects: a name, the file set and an
// optional entry override.
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"previewkit/internal/vfs"
)

var ErrNotFound = errors.New("project not found")

type Project struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Files      map[string]string `json:"files,omitempty"`
	EntryPoint string            `json:"entryPoint,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Store is implemented by every backend. List omits file contents.
type Store interface {
	Get(ctx context.Context, id string) (Project, error)
	Put(ctx context.Context, p Project) (Project, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Project, error)
	Close() error
}

// Open returns the backend named by kind: memory, sqlite or postgres.
func Open(kind, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		if strings.TrimSpace(dsn) == "" {
			dsn = "previewkit.db"
		}
		return OpenSQL(DialectSQLite, dsn)
	case "postgres", "postgresql", "pg":
		return OpenSQL(DialectPostgres, dsn)
	default:
		return nil, fmt.Errorf("unknown project store %q", kind)
	}
}

// Snapshot converts p into the file set a build runs over.
func Snapshot(p Project) (*vfs.Snapshot, error) {
	snap, err := vfs.FromMap(p.Files)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ID, err)
	}
	if p.EntryPoint != "" {
		snap = snap.WithEntryPoint(p.EntryPoint)
	}
	return snap, nil
}

func normalize(p Project) Project {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = "Project"
	}
	p.EntryPoint = strings.TrimSpace(p.EntryPoint)
	if p.Files == nil {
		p.Files = map[string]string{}
	}
	p.UpdatedAt = time.Now().UTC()
	return p
}

func sortProjects(ps []Project) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].UpdatedAt.Equal(ps[j].UpdatedAt) {
			return ps[i].UpdatedAt.After(ps[j].UpdatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
