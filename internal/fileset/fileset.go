// Package fileset computes and filters the set of files a run considers.
// The set is built once per run from git diff state and shared read-only
// by every gate.
package fileset

import (
	"path/filepath"
	"strings"
)

// Line is a single line added by the diff under consideration.
type Line struct {
	Number int    // line number in the new file
	Text   string
}

// FileSet is an ordered sequence of repo-relative paths with set semantics
// for membership tests. Gates must not mutate it; auto-fix gates rewrite
// file contents on disk, never the set itself.
type FileSet struct {
	paths []string
	index map[string]struct{}
	added map[string][]Line
}

// New creates a FileSet from the given paths, preserving order and
// dropping duplicates.
func New(paths []string) *FileSet {
	fs := &FileSet{index: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if _, ok := fs.index[p]; ok {
			continue
		}
		fs.index[p] = struct{}{}
		fs.paths = append(fs.paths, p)
	}
	return fs
}

// Paths returns the ordered paths. Callers must not modify the slice.
func (fs *FileSet) Paths() []string {
	return fs.paths
}

// Contains reports whether the set includes the given path.
func (fs *FileSet) Contains(path string) bool {
	_, ok := fs.index[path]
	return ok
}

// Len returns the number of files in the set.
func (fs *FileSet) Len() int {
	return len(fs.paths)
}

// Empty reports whether the set has no files.
func (fs *FileSet) Empty() bool {
	return len(fs.paths) == 0
}

// AddedLines returns the lines the diff added to the given file, in file
// order. Nil when the set was built without diff context (e.g. --all-files).
func (fs *FileSet) AddedLines(path string) []Line {
	if fs.added == nil {
		return nil
	}
	return fs.added[path]
}

// Filter returns a new FileSet containing only the files that match at
// least one of the given patterns. An empty pattern list keeps everything.
// Added-line context is carried over for the surviving files.
func (fs *FileSet) Filter(patterns []string) *FileSet {
	if len(patterns) == 0 {
		return fs
	}
	out := &FileSet{index: make(map[string]struct{})}
	for _, p := range fs.paths {
		if matchAny(patterns, p) {
			out.index[p] = struct{}{}
			out.paths = append(out.paths, p)
		}
	}
	out.copyAdded(fs)
	return out
}

// Exclude returns a new FileSet with files matching any pattern removed.
func (fs *FileSet) Exclude(patterns []string) *FileSet {
	if len(patterns) == 0 {
		return fs
	}
	out := &FileSet{index: make(map[string]struct{})}
	for _, p := range fs.paths {
		if !matchAny(patterns, p) {
			out.index[p] = struct{}{}
			out.paths = append(out.paths, p)
		}
	}
	out.copyAdded(fs)
	return out
}

func (fs *FileSet) copyAdded(src *FileSet) {
	if src.added == nil {
		return
	}
	fs.added = make(map[string][]Line)
	for p := range fs.index {
		if lines, ok := src.added[p]; ok {
			fs.added[p] = lines
		}
	}
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if Match(pattern, path) {
			return true
		}
	}
	return false
}

// Match matches a repo-relative path against a glob pattern with **
// support. A pattern without a slash matches against the base name as
// well, so "*.ts" matches "src/a.ts".
func Match(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "**" {
		return true
	}

	// Directory prefix patterns: "src/" matches everything under src.
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}

	if !strings.Contains(pattern, "/") {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	return matchParts(splitSlash(pattern), splitSlash(path))
}

func splitSlash(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func matchParts(pattern, path []string) bool {
	pi, pathi := 0, 0

	for pi < len(pattern) && pathi < len(path) {
		if pattern[pi] == "**" {
			// ** matches zero or more path segments
			if pi == len(pattern)-1 {
				return true
			}
			for i := pathi; i <= len(path); i++ {
				if matchParts(pattern[pi+1:], path[i:]) {
					return true
				}
			}
			return false
		}

		matched, _ := filepath.Match(pattern[pi], path[pathi])
		if !matched {
			return false
		}

		pi++
		pathi++
	}

	return pi == len(pattern) && pathi == len(path)
}
