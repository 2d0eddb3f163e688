// Package scan reads a project directory on disk into a build snapshot.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"previewkit/internal/vfs"
)

// DefaultMaxFileSize caps a single source file.
const DefaultMaxFileSize = 2 << 20

var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true, "dist": true, "build": true,
	".next": true, ".cache": true,
}

// FileVisit describes an entry the walk skipped, and why.
type FileVisit struct {
	Path   string
	Reason string
}

type Options struct {
	MaxFileSize int64
	// Skipped is called for every file left out of the snapshot.
	Skipped func(FileVisit)
}

// Dir walks root and returns its source files as a snapshot. Dependency and
// VCS directories, binary files and oversized files are skipped.
func Dir(root string, opts Options) (*vfs.Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}
	limit := opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	skip := func(rel, reason string) {
		if opts.Skipped != nil {
			opts.Skipped(FileVisit{Path: rel, Reason: reason})
		}
	}

	var files []vfs.File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !d.Type().IsRegular() {
			skip(rel, "not a regular file")
			return nil
		}
		if isBinary(rel) {
			skip(rel, "binary")
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > limit {
			skip(rel, fmt.Sprintf("larger than %d bytes", limit))
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, vfs.File{Path: rel, Content: string(b), Size: fi.Size(), ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return vfs.NewSnapshot(files...)
}

func isBinary(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	// images
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".bmp", ".tiff":
		return true
	// video
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi":
		return true
	// audio
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a":
		return true
	// archives / others
	case ".pdf", ".zip", ".jar", ".gz", ".tgz", ".bz2", ".7z", ".exe", ".dll", ".dylib", ".so", ".woff", ".woff2":
		return true
	}
	return false
}
