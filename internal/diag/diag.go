// Package diag defines build diagnostics and their textual form.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "error", "":
		*s = Error
	case "warning", "warn":
		*s = Warning
	default:
		return fmt.Errorf("diag: unknown severity %q", string(b))
	}
	return nil
}

// Diagnostic is an error or warning attached to a file location. Line and
// Column are 1-based; 0 means unknown.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func Errorf(file string, format string, args ...any) Diagnostic {
	return Diagnostic{File: file, Message: fmt.Sprintf(format, args...), Severity: Error}
}

func Warnf(file string, format string, args ...any) Diagnostic {
	return Diagnostic{File: file, Message: fmt.Sprintf(format, args...), Severity: Warning}
}

// Format renders "<file>:<line>:<column>: <message>", prefixed with
// "Warning: " for warnings.
func Format(d Diagnostic) string {
	s := fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	if d.Severity == Warning {
		return "Warning: " + s
	}
	return s
}

func (d Diagnostic) String() string { return Format(d) }

func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns the number of errors and warnings.
func Count(ds []Diagnostic) (errors, warnings int) {
	for _, d := range ds {
		if d.Severity == Warning {
			warnings++
		} else {
			errors++
		}
	}
	return errors, warnings
}

// Sort orders diagnostics by file, position and message so concurrent
// collection yields a stable sequence. Diagnostics without a file go first.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.Message < b.Message
	})
}

// Position returns the 1-based line and column of byte offset off in src.
func Position(src string, off int) (int, int) {
	if off < 0 || off > len(src) {
		return 0, 0
	}
	line := 1 + strings.Count(src[:off], "\n")
	col := off + 1
	if i := strings.LastIndex(src[:off], "\n"); i >= 0 {
		col = off - i
	}
	return line, col
}
