package keymanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trackgrid/trackgrid/internal/keycodec"
)

// Manager walks a set of root directories and assigns hierarchical keys to
// every surviving file and directory.
type Manager struct {
	BaseDir     string
	Ignorer     Ignorer
	Excludes    *Matcher
	Concurrency int

	logger *slog.Logger
}

// NewManager builds a Manager rooted at baseDir.
func NewManager(baseDir string, ignorer Ignorer, excludes *Matcher) *Manager {
	return &Manager{
		BaseDir:  baseDir,
		Ignorer:  ignorer,
		Excludes: excludes,
		logger:   slog.Default().With("component", "keymanager"),
	}
}

// Result is the output of Generate: the freshly assigned global map, plus
// the subset of entries that are new or whose key changed relative to
// oldMap.
type Result struct {
	CurrentMap GlobalMap
	NewKeys    []*KeyInfo
}

// entry is an internal work item: one filesystem path awaiting label
// assignment and, if a directory, recursion.
type entry struct {
	absPath  string
	relPath  string // forward-slashed, relative to BaseDir
	parent   string // relPath of the parent, "" for roots
	isDir    bool
	tier     int
	tierKind keycodec.Kind
	index    int
}

// Generate walks rootPaths (each relative to m.BaseDir) and assigns keys
// to every surviving entry. rootPaths are sorted by basename before root
// digits are assigned, per the same deterministic-sibling-order rule
// applied at every other tier. oldMap is consulted only to compute the
// NewKeys diff -- the assignment itself is purely structural and does not
// special-case previously-seen paths; preservation of stable keys is a
// consequence of determinism, not separate logic.
func (m *Manager) Generate(ctx context.Context, rootPaths []string, oldMap GlobalMap) (*Result, error) {
	sortedRoots := append([]string(nil), rootPaths...)
	sort.Slice(sortedRoots, func(i, j int) bool {
		return filepath.Base(sortedRoots[i]) < filepath.Base(sortedRoots[j])
	})

	current := make(GlobalMap)
	var mu sync.Mutex
	resolver := newSymlinkResolver()

	g, gctx := errgroup.WithContext(ctx)
	concurrency := m.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	g.SetLimit(concurrency)

	for i, rootRel := range sortedRoots {
		rootRel := filepath.ToSlash(strings.TrimSuffix(rootRel, "/"))
		index := i + 1
		absPath := filepath.Join(m.BaseDir, filepath.FromSlash(rootRel))

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("keymanager: stat root %s: %w", rootRel, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("keymanager: configured root %s is not a directory", rootRel)
		}

		root := &KeyInfo{
			KeyString:   keycodec.DigitLabel(index),
			NormPath:    rootRel,
			IsDirectory: true,
			Tier:        1,
			Index:       index,
		}
		if err := put(current, &mu, root); err != nil {
			return nil, err
		}

		e := entry{absPath: absPath, relPath: rootRel, tier: 1, tierKind: keycodec.Digit, isDir: true}
		parentKey := root.KeyString
		g.Go(func() error {
			return m.walkChildren(gctx, e, parentKey, current, &mu, resolver)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if _, err := current.ByKey(); err != nil {
		return nil, err
	}

	newKeys := diffNewKeys(current, oldMap)
	m.logger.Info("key generation complete", "entries", len(current), "new_keys", len(newKeys))

	return &Result{CurrentMap: current, NewKeys: newKeys}, nil
}

// walkChildren lists e's children, assigns each a label in the child tier,
// and recurses into subdirectories concurrently (through a nested errgroup
// with no limit of its own; only the root-level walk is bounded by the
// configured concurrency). Labels depend
// only on a child's sorted position among its siblings, which is fixed
// before any recursion starts, so recursing into sibling subdirectories
// concurrently never affects label assignment order.
func (m *Manager) walkChildren(ctx context.Context, e entry, parentKey string, current GlobalMap, mu *sync.Mutex, resolver *symlinkResolver) error {
	if !e.isDir {
		return nil
	}

	dirEntries, err := os.ReadDir(e.absPath)
	if err != nil {
		return fmt.Errorf("keymanager: read dir %s: %w", e.relPath, err)
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})

	childKind := keycodec.ChildKind(e.tierKind)
	childTier := e.tier + 1

	type survivor struct {
		name  string
		isDir bool
		abs   string
		rel   string
	}
	var survivors []survivor
	for _, de := range dirEntries {
		name := de.Name()
		abs := filepath.Join(e.absPath, name)
		rel := e.relPath + "/" + name
		isDir := de.IsDir()

		if de.Type()&os.ModeSymlink != 0 {
			realPath, isLoop, err := resolver.resolve(abs)
			if err != nil {
				m.logger.Debug("skipping unresolvable symlink", "path", rel, "error", err)
				continue
			}
			if isLoop {
				m.logger.Debug("skipping symlink loop", "path", rel)
				continue
			}
			resolver.markVisited(realPath)
			info, err := os.Stat(realPath)
			if err != nil {
				m.logger.Debug("skipping symlink with unreadable target", "path", rel, "error", err)
				continue
			}
			isDir = info.IsDir()
		}

		if m.Ignorer != nil && m.Ignorer.IsIgnored(rel, isDir) {
			continue
		}
		if isDir && m.Excludes != nil && m.Excludes.IsExcludedDir(name, abs) {
			continue
		}
		if !isDir && m.Excludes != nil && m.Excludes.IsExcludedPath(rel, abs, false) {
			continue
		}
		if !isDir {
			if binary, err := IsBinary(abs); err != nil {
				m.logger.Debug("skipping unreadable file", "path", rel, "error", err)
				continue
			} else if binary {
				m.logger.Debug("skipping binary file", "path", rel)
				continue
			}
		}

		survivors = append(survivors, survivor{name: name, isDir: isDir, abs: abs, rel: rel})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range survivors {
		index := i + 1
		info := &KeyInfo{
			KeyString:   parentKey + keycodec.Label(childKind, index),
			NormPath:    s.rel,
			ParentPath:  e.relPath,
			IsDirectory: s.isDir,
			Tier:        childTier,
			Index:       index,
		}
		if err := put(current, mu, info); err != nil {
			return err
		}
		if s.isDir {
			childEntry := entry{absPath: s.abs, relPath: s.rel, parent: e.relPath, isDir: true, tier: childTier, tierKind: childKind}
			childKey := info.KeyString
			g.Go(func() error {
				return m.walkChildren(gctx, childEntry, childKey, current, mu, resolver)
			})
		}
	}
	return g.Wait()
}

func put(m GlobalMap, mu *sync.Mutex, info *KeyInfo) error {
	mu.Lock()
	defer mu.Unlock()
	if existing, ok := m[info.NormPath]; ok {
		return &KeyGenerationError{Reason: fmt.Sprintf("duplicate norm_path %s (keys %s and %s)", info.NormPath, existing.KeyString, info.KeyString)}
	}
	m[info.NormPath] = info
	return nil
}

// diffNewKeys returns the KeyInfo entries in current that either did not
// exist in oldMap, or whose KeyString changed.
func diffNewKeys(current, oldMap GlobalMap) []*KeyInfo {
	var out []*KeyInfo
	for path, info := range current {
		old, ok := oldMap[path]
		if !ok || old.KeyString != info.KeyString {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return keycodec.Compare(out[i].KeyString, out[j].KeyString) < 0
	})
	return out
}
