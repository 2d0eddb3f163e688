package projectstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	saved, err := s.Put(ctx, Project{Name: "  ", Files: map[string]string{"index.ts": "export {}"}})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Project", saved.Name)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Files, got.Files)

	got.Files["index.ts"] = "mutated"
	again, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "export {}", again.Files["index.ts"])

	_, err = s.Put(ctx, Project{ID: saved.ID, Name: "Demo", EntryPoint: "main.ts", Files: map[string]string{"main.ts": "1"}})
	require.NoError(t, err)
	got, err = s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Demo", got.Name)
	assert.Equal(t, "main.ts", got.EntryPoint)
	assert.Equal(t, map[string]string{"main.ts": "1"}, got.Files)

	_, err = s.Put(ctx, Project{ID: "second", Name: "Other"})
	require.NoError(t, err)
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		assert.Nil(t, p.Files)
	}

	require.NoError(t, s.Delete(ctx, saved.ID))
	_, err = s.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, saved.ID), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("redis", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT $1, $2", s.rebind("SELECT ?, ?"))
	s.dialect = DialectSQLite
	assert.Equal(t, "SELECT ?", s.rebind("SELECT ?"))
}

func TestSnapshot(t *testing.T) {
	snap, err := Snapshot(Project{ID: "p", Files: map[string]string{"./src/a.ts": "x"}, EntryPoint: "src/a.ts"})
	require.NoError(t, err)
	assert.True(t, snap.Store().Contains("src/a.ts"))
	assert.Equal(t, "src/a.ts", snap.EntryPoint)

	_, err = Snapshot(Project{ID: "p", Files: map[string]string{"a.ts": "1", "./a.ts": "2"}})
	assert.Error(t, err)
}
