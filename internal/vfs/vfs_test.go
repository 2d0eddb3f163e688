package vfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "src/index.ts", want: "src/index.ts", ok: true},
		{in: "/src/index.ts", want: "src/index.ts", ok: true},
		{in: "./src//a/../b.ts", want: "src/b.ts", ok: true},
		{in: `src\win\file.js`, want: "src/win/file.js", ok: true},
		{in: "../escape.ts", ok: false},
		{in: "", ok: false},
		{in: "./", ok: false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestJoin(t *testing.T) {
	got, ok := Join("src/components", "../util/x")
	require.True(t, ok)
	assert.Equal(t, "src/util/x", got)

	got, ok = Join("", "./b")
	require.True(t, ok)
	assert.Equal(t, "b", got)

	_, ok = Join("src", "../../x")
	assert.False(t, ok)
}

func TestNewSnapshotRejectsDuplicates(t *testing.T) {
	_, err := NewSnapshot(File{Path: "a.ts"}, File{Path: "/a.ts"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePath))

	_, err = NewSnapshot(File{Path: "../a.ts"})
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestStoreIsReadOnlyView(t *testing.T) {
	snap, err := FromMap(map[string]string{"b.ts": "b", "a.ts": "aa"})
	require.NoError(t, err)
	store := snap.Store()

	f, ok := store.Get("a.ts")
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Size)
	assert.True(t, store.Contains("b.ts"))
	assert.False(t, store.Contains("c.ts"))
	assert.Equal(t, []string{"a.ts", "b.ts"}, store.Paths())
	assert.Len(t, store.All(), 2)
}

func TestHashStable(t *testing.T) {
	a, _ := FromMap(map[string]string{"a.ts": "1", "b.ts": "2"})
	b, _ := FromMap(map[string]string{"b.ts": "2", "a.ts": "1"})
	c, _ := FromMap(map[string]string{"a.ts": "1", "b.ts": "3"})
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.NotEqual(t, a.Hash(), a.WithEntryPoint("b.ts").Hash())
}
