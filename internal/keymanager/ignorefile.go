package keymanager

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileMatcher loads and evaluates gitignore-syntax ignore files
// (.gitignore, .trackgridignore) hierarchically: a pattern file at any
// directory level applies to everything in its subtree, with nested files
// adding to (and able to negate) ancestor rules. One matcher, parametrized
// by filename, supports both ignore-file conventions.
type IgnoreFileMatcher struct {
	root     string
	filename string
	matchers map[string]*gitignore.GitIgnore
	dirs     []string
	logger   *slog.Logger
}

// NewIgnoreFileMatcher walks rootDir looking for files named filename and
// compiles each one with sabhiram/go-gitignore. A tree with no matching
// files yields a matcher whose IsIgnored always returns false.
func NewIgnoreFileMatcher(rootDir, filename string) (*IgnoreFileMatcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", rootDir, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root path %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", absRoot)
	}

	m := &IgnoreFileMatcher{
		root:     absRoot,
		filename: filename,
		matchers: make(map[string]*gitignore.GitIgnore),
		logger:   slog.Default().With("component", "ignorefile", "filename", filename),
	}
	if err := m.discover(); err != nil {
		return nil, fmt.Errorf("discovering %s files in %s: %w", filename, absRoot, err)
	}
	return m, nil
}

func (m *IgnoreFileMatcher) discover() error {
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return filepath.SkipDir
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != m.filename {
			return nil
		}

		dirPath := filepath.Dir(path)
		relDir, err := filepath.Rel(m.root, dirPath)
		if err != nil {
			m.logger.Debug("skipping ignore file, cannot compute relative path", "path", path, "error", err)
			return nil
		}
		compiled, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			m.logger.Debug("skipping unreadable ignore file", "path", path, "error", err)
			return nil
		}
		if relDir == "" {
			relDir = "."
		}
		m.matchers[relDir] = compiled
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	m.dirs = make([]string, 0, len(m.matchers))
	for dir := range m.matchers {
		m.dirs = append(m.dirs, dir)
	}
	sort.Strings(m.dirs)
	return nil
}

// IsIgnored reports whether path (root-relative, forward-slashed) is
// ignored by any applicable ignore file between the root and path's parent
// directory.
func (m *IgnoreFileMatcher) IsIgnored(path string, isDir bool) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "./")
	if normalized == "" || normalized == "." {
		return false
	}
	matchPath := normalized
	if isDir && !strings.HasSuffix(matchPath, "/") {
		matchPath += "/"
	}

	for _, dir := range m.dirs {
		if dir != "." {
			prefix := dir + "/"
			if !strings.HasPrefix(normalized, prefix) {
				continue
			}
		}
		var relPath string
		if dir == "." {
			relPath = matchPath
		} else {
			relPath = strings.TrimPrefix(matchPath, dir+"/")
		}
		if m.matchers[dir].MatchesPath(relPath) {
			return true
		}
	}
	return false
}

var _ Ignorer = (*IgnoreFileMatcher)(nil)
