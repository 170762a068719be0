package keymanager

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ignorer is the interface for every exclusion source consulted during the
// walk. path is relative to the scan root, forward-slashed.
type Ignorer interface {
	IsIgnored(path string, isDir bool) bool
}

// ExcludeConfig holds the four exclusion sources: directory names, absolute
// paths, file extensions, and filename glob patterns.
type ExcludeConfig struct {
	// DirNames excludes any directory whose basename matches exactly
	// (e.g. "node_modules", ".git", "vendor").
	DirNames []string
	// AbsPaths excludes specific absolute filesystem paths.
	AbsPaths []string
	// Extensions excludes files by extension, without the leading dot,
	// case-insensitive (e.g. "pyc", "lock").
	Extensions []string
	// Patterns excludes paths matching a doublestar glob, evaluated against
	// the root-relative, forward-slashed path (e.g. "**/*_generated.go").
	Patterns []string
}

// Matcher evaluates ExcludeConfig against walk entries.
type Matcher struct {
	dirNames   map[string]bool
	absPaths   map[string]bool
	extensions map[string]bool
	patterns   []string
	logger     *slog.Logger
}

// NewMatcher builds a Matcher from cfg. AbsPaths entries are made absolute
// with filepath.Abs (relative to the working directory) and cleaned, for
// comparison against the absolute paths the walker produces.
func NewMatcher(cfg ExcludeConfig) *Matcher {
	dirNames := make(map[string]bool, len(cfg.DirNames))
	for _, n := range cfg.DirNames {
		dirNames[n] = true
	}
	absPaths := make(map[string]bool, len(cfg.AbsPaths))
	for _, p := range cfg.AbsPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		absPaths[filepath.Clean(abs)] = true
	}
	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	patterns := make([]string, len(cfg.Patterns))
	copy(patterns, cfg.Patterns)

	return &Matcher{
		dirNames:   dirNames,
		absPaths:   absPaths,
		extensions: extensions,
		patterns:   patterns,
		logger:     slog.Default().With("component", "keymanager-exclude"),
	}
}

// IsExcludedDir reports whether a directory with the given basename and
// absolute path should be skipped entirely (its subtree never walked).
func (m *Matcher) IsExcludedDir(basename, absPath string) bool {
	if m.dirNames[basename] {
		return true
	}
	if m.absPaths[filepath.Clean(absPath)] {
		return true
	}
	return false
}

// IsExcludedPath reports whether the given root-relative path (forward
// slashed) and absolute path should be excluded, checking extensions and
// glob patterns in addition to the directory rules in IsExcludedDir.
func (m *Matcher) IsExcludedPath(relPath, absPath string, isDir bool) bool {
	if isDir {
		return m.IsExcludedDir(filepath.Base(relPath), absPath)
	}
	if m.absPaths[filepath.Clean(absPath)] {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(relPath), "."))
	if ext != "" && m.extensions[ext] {
		return true
	}
	for _, pattern := range m.patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			m.logger.Debug("invalid exclude pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// CompositeIgnorer chains multiple Ignorer sources; a path is ignored if
// any one of them matches it.
type CompositeIgnorer struct {
	ignorers []Ignorer
}

// NewCompositeIgnorer builds a CompositeIgnorer from the given sources,
// silently dropping any nil entries.
func NewCompositeIgnorer(ignorers ...Ignorer) *CompositeIgnorer {
	filtered := make([]Ignorer, 0, len(ignorers))
	for _, ig := range ignorers {
		if ig != nil {
			filtered = append(filtered, ig)
		}
	}
	return &CompositeIgnorer{ignorers: filtered}
}

// IsIgnored reports whether any chained source ignores path.
func (c *CompositeIgnorer) IsIgnored(path string, isDir bool) bool {
	for _, ig := range c.ignorers {
		if ig.IsIgnored(path, isDir) {
			return true
		}
	}
	return false
}

var _ Ignorer = (*CompositeIgnorer)(nil)
