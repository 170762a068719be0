package keymanager

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// symlinkResolver tracks visited real directory paths to detect symlink
// loops while recursing for key assignment. Only directories matter here:
// a symlinked file is just another leaf, but a symlinked directory can
// reintroduce an ancestor and recurse forever.
type symlinkResolver struct {
	visited map[string]bool
	mu      sync.Mutex
	logger  *slog.Logger
}

func newSymlinkResolver() *symlinkResolver {
	return &symlinkResolver{
		visited: make(map[string]bool),
		logger:  slog.Default().With("component", "keymanager-symlink"),
	}
}

// resolve returns the real path of path and whether it has already been
// visited (a loop). Callers must call markVisited once they commit to
// recursing into the directory.
func (s *symlinkResolver) resolve(path string) (realPath string, isLoop bool, err error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, fmt.Errorf("dangling symlink %s: %w", path, err)
		}
		return "", false, fmt.Errorf("resolving symlink %s: %w", path, err)
	}
	s.mu.Lock()
	loop := s.visited[resolved]
	s.mu.Unlock()
	if loop {
		s.logger.Debug("symlink loop detected", "path", path, "real_path", resolved)
		return resolved, true, nil
	}
	return resolved, false, nil
}

func (s *symlinkResolver) markVisited(realPath string) {
	s.mu.Lock()
	s.visited[realPath] = true
	s.mu.Unlock()
}
