// Package vfs holds the in-memory project files a build reads from.
//
// A Snapshot is created per build from the caller's current file set and is
// never mutated afterwards; Store is the read-only view handed to resolution.
package vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrDuplicatePath = errors.New("vfs: duplicate path")
	ErrInvalidPath   = errors.New("vfs: invalid path")
)

// File is a single virtual source file.
type File struct {
	Path    string    `json:"path"`
	Content string    `json:"content"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime,omitempty"`
}

// Snapshot maps normalized paths to files, plus an optional entry override.
type Snapshot struct {
	files      map[string]File
	EntryPoint string
}

// NewSnapshot normalizes every file path and rejects collisions.
func NewSnapshot(files ...File) (*Snapshot, error) {
	s := &Snapshot{files: make(map[string]File, len(files))}
	for _, f := range files {
		p, ok := Normalize(f.Path)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, f.Path)
		}
		if _, dup := s.files[p]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePath, p)
		}
		f.Path = p
		if f.Size == 0 {
			f.Size = int64(len(f.Content))
		}
		s.files[p] = f
	}
	return s, nil
}

// FromMap builds a snapshot from path -> content pairs.
func FromMap(files map[string]string) (*Snapshot, error) {
	list := make([]File, 0, len(files))
	for p, c := range files {
		list = append(list, File{Path: p, Content: c})
	}
	return NewSnapshot(list...)
}

// WithEntryPoint returns a copy of s carrying the given override.
func (s *Snapshot) WithEntryPoint(path string) *Snapshot {
	cp := *s
	cp.EntryPoint = path
	if p, ok := Normalize(path); ok {
		cp.EntryPoint = p
	}
	return &cp
}

// Store returns the read-only view over s.
func (s *Snapshot) Store() Store {
	if s == nil {
		return Store{}
	}
	return Store{files: s.files}
}

// Hash is a stable digest of paths and contents.
func (s *Snapshot) Hash() string {
	h := sha256.New()
	for _, f := range s.Store().All() {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	}
	h.Write([]byte(s.EntryPoint))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a read-only view over a Snapshot.
type Store struct {
	files map[string]File
}

func (s Store) Get(path string) (File, bool) {
	f, ok := s.files[path]
	return f, ok
}

func (s Store) Contains(path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s Store) Len() int { return len(s.files) }

// All returns every file sorted by path.
func (s Store) All() []File {
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Paths returns every key sorted.
func (s Store) Paths() []string {
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Normalize converts p to the canonical key form: slash separated, no leading
// slash, "." segments dropped and ".." segments popped. It reports false for
// empty paths and paths that climb above the root.
func Normalize(p string) (string, bool) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	segs, ok := push(nil, p)
	if !ok || len(segs) == 0 {
		return "", false
	}
	return strings.Join(segs, "/"), true
}

// Dir returns the directory part of a normalized path ("" for the root).
func Dir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// Join resolves rel against dir. The result may be empty when rel points at
// the root itself; ok is false when rel climbs above the root.
func Join(dir, rel string) (string, bool) {
	segs, ok := push(nil, dir)
	if !ok {
		return "", false
	}
	segs, ok = push(segs, rel)
	if !ok {
		return "", false
	}
	return strings.Join(segs, "/"), true
}

func push(segs []string, p string) ([]string, bool) {
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return nil, false
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}
	return segs, true
}
