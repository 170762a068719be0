// Package migration builds the path -> (old_key?, new_key?) map that every
// tracker-grid operation consults to interpret stale on-disk keys.
package migration

import (
	"fmt"
	"sort"

	"github.com/trackgrid/trackgrid/internal/keymanager"
	"github.com/zeebo/xxh3"
)

// Entry records the old and/or new key for one path. A stable path has
// both set; a removed path has only OldKey; an added path has only NewKey.
type Entry struct {
	Path   string
	OldKey string // "" if the path is new
	NewKey string // "" if the path was removed
}

// Stable reports whether the path exists in both the old and new maps.
func (e Entry) Stable() bool { return e.OldKey != "" && e.NewKey != "" }

// Added reports whether the path is new (absent from the old map).
func (e Entry) Added() bool { return e.OldKey == "" && e.NewKey != "" }

// Removed reports whether the path no longer exists (absent from the new map).
func (e Entry) Removed() bool { return e.OldKey != "" && e.NewKey == "" }

// Map is path -> Entry, plus the reverse old_key -> path index that
// TrackerReader/TrackerUpdater use to resolve stale grid cells.
type Map struct {
	byPath   map[string]Entry
	byOldKey map[string]string // old key -> path
	byNewKey map[string]string // new key -> path
}

// DuplicatePathError reports the same path or key appearing twice within
// one global map, surfaced while building a Map.
type DuplicatePathError struct {
	Reason string
}

func (e *DuplicatePathError) Error() string {
	return "migration: " + e.Reason
}

// Build constructs a Map from the optional previous global map and the
// required current one. Both maps must have no two paths sharing the same
// key (checked via GlobalMap.ByKey); a violation is reported as a
// DuplicatePathError, fatal for the run.
func Build(oldMap, newMap keymanager.GlobalMap) (*Map, error) {
	if newMap == nil {
		return nil, &DuplicatePathError{Reason: "new global map is required"}
	}
	if _, err := newMap.ByKey(); err != nil {
		return nil, &DuplicatePathError{Reason: fmt.Sprintf("new map: %v", err)}
	}
	if oldMap != nil {
		if _, err := oldMap.ByKey(); err != nil {
			return nil, &DuplicatePathError{Reason: fmt.Sprintf("old map: %v", err)}
		}
	}

	m := &Map{
		byPath:   make(map[string]Entry),
		byOldKey: make(map[string]string),
		byNewKey: make(map[string]string),
	}

	for path, info := range oldMap {
		m.byPath[path] = Entry{Path: path, OldKey: info.KeyString}
		m.byOldKey[info.KeyString] = path
	}
	for path, info := range newMap {
		e := m.byPath[path]
		e.Path = path
		e.NewKey = info.KeyString
		m.byPath[path] = e
		m.byNewKey[info.KeyString] = path
	}

	return m, nil
}

// Lookup returns the Entry for path, or the zero Entry and false if path is
// unknown to both maps.
func (m *Map) Lookup(path string) (Entry, bool) {
	e, ok := m.byPath[path]
	return e, ok
}

// PathForOldKey resolves a stale key string (as found in an on-disk grid)
// to its path, or "", false if no path has that old key.
func (m *Map) PathForOldKey(oldKey string) (string, bool) {
	p, ok := m.byOldKey[oldKey]
	return p, ok
}

// PathForNewKey resolves a current key string to its path.
func (m *Map) PathForNewKey(newKey string) (string, bool) {
	p, ok := m.byNewKey[newKey]
	return p, ok
}

// NewKeyForOldKey resolves a stale key directly to its current key,
// reporting ok=false if the path behind oldKey is unstable (removed) or
// unknown. This is the operation every grid-cell migration performs twice
// per cell (once per axis).
func (m *Map) NewKeyForOldKey(oldKey string) (string, bool) {
	path, ok := m.PathForOldKey(oldKey)
	if !ok {
		return "", false
	}
	e := m.byPath[path]
	if e.NewKey == "" {
		return "", false
	}
	return e.NewKey, true
}

// Entries returns every Entry in the map, sorted by path for deterministic
// iteration.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.byPath))
	for _, e := range m.byPath {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Fingerprint returns a stable hash of the map's contents, suitable as the
// migration component of an aggregation cache key: any change to a path's
// old/new key pairing changes the fingerprint.
func (m *Map) Fingerprint() uint64 {
	entries := m.Entries()
	buf := make([]byte, 0, 64*len(entries))
	for _, e := range entries {
		buf = append(buf, e.Path...)
		buf = append(buf, 0)
		buf = append(buf, e.OldKey...)
		buf = append(buf, 0)
		buf = append(buf, e.NewKey...)
		buf = append(buf, 0)
	}
	return xxh3.Hash(buf)
}
