package cli

import (
	"fmt"
	"path/filepath"

	"github.com/trackgrid/trackgrid/internal/gridcodec"
	"github.com/trackgrid/trackgrid/internal/keycodec"
	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

// loadedTracker is a parsed tracker file with its hierarchically sorted key
// order and fully decompressed rows, ready for direct cell-level edits. The
// commands that operate on a single tracker file (get-char, set-char,
// add-dependency, remove-key, merge-trackers, export-tracker,
// show-dependencies, show-keys) all build one of these instead of going
// through the full analyze-project orchestration.
type loadedTracker struct {
	path  string
	typ   tracker.Type
	file  *tracker.File
	order []string
	idx   map[string]int
	rows  map[string]string // raw, decompressed, one entry per key in order
}

// trackerTypeForPath infers a tracker's type from its conventional filename.
// main_tracker.md and doc_tracker.md are the two fixed names an
// analyze-project run produces; anything else is treated as a mini tracker.
func trackerTypeForPath(path string) tracker.Type {
	switch filepath.Base(path) {
	case "main_tracker.md":
		return tracker.Main
	case "doc_tracker.md":
		return tracker.Doc
	default:
		return tracker.Mini
	}
}

// loadTrackerFile reads and fully decompresses the tracker at path.
func loadTrackerFile(path string) (*loadedTracker, error) {
	typ := trackerTypeForPath(path)
	f, err := tracker.Read(path, typ)
	if err != nil {
		return nil, err
	}

	defKeys := make([]string, 0, len(f.Defs))
	for k := range f.Defs {
		defKeys = append(defKeys, k)
	}
	order := keycodec.SortHierarchical(defKeys)
	n := len(order)

	idx := make(map[string]int, n)
	rows := make(map[string]string, n)
	for i, k := range order {
		idx[k] = i
		rle, ok := f.Rows[k]
		if !ok {
			return nil, fmt.Errorf("tracker %s: key %s has no grid row", path, k)
		}
		raw, err := gridcodec.Decompress(rle)
		if err != nil {
			return nil, fmt.Errorf("tracker %s: row %s: %w", path, k, err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("tracker %s: row %s has length %d, want %d", path, k, len(raw), n)
		}
		rows[k] = raw
	}

	return &loadedTracker{path: path, typ: typ, file: f, order: order, idx: idx, rows: rows}, nil
}

// hasKey reports whether key is defined in the tracker.
func (lt *loadedTracker) hasKey(key string) bool {
	_, ok := lt.idx[key]
	return ok
}

// get returns the relation character at (row, col).
func (lt *loadedTracker) get(row, col string) (priority.Char, error) {
	if _, ok := lt.idx[row]; !ok {
		return 0, fmt.Errorf("key %q not found in %s", row, lt.path)
	}
	ci, ok := lt.idx[col]
	if !ok {
		return 0, fmt.Errorf("key %q not found in %s", col, lt.path)
	}
	return priority.Char(lt.rows[row][ci]), nil
}

// set overwrites the relation character at (row, col).
func (lt *loadedTracker) set(row, col string, c priority.Char) error {
	if _, ok := lt.idx[row]; !ok {
		return fmt.Errorf("key %q not found in %s", row, lt.path)
	}
	ci, ok := lt.idx[col]
	if !ok {
		return fmt.Errorf("key %q not found in %s", col, lt.path)
	}
	buf := []byte(lt.rows[row])
	buf[ci] = byte(c)
	lt.rows[row] = string(buf)
	return nil
}

// save writes the edited tracker back to disk, preserving the mini
// tracker's preamble verbatim.
func (lt *loadedTracker) save(lastKeyEdit, lastGridEdit string, opts tracker.WriteOptions) error {
	wi := tracker.WriteInput{
		PreambleBefore: lt.file.PreambleBefore,
		PreambleAfter:  lt.file.PreambleAfter,
		Keys:           lt.order,
		Defs:           lt.file.Defs,
		LastKeyEdit:    lastKeyEdit,
		LastGridEdit:   lastGridEdit,
		Rows:           lt.rows,
	}
	return tracker.Write(lt.path, lt.typ, wi, opts)
}

// resolvePriorityTable builds the priority.Table to use for a direct
// tracker edit: the active profile's priority_order if one resolves
// cleanly, falling back to priority.Default() so these commands still work
// outside a configured project.
func resolvePriorityTable() *priority.Table {
	fv := GlobalFlags()
	if fv == nil {
		return priority.Default()
	}
	rc, err := resolveActiveConfig(fv)
	if err != nil || rc == nil || rc.Profile == nil {
		return priority.Default()
	}
	table, err := buildPriorityTable(rc.Profile.PriorityOrder)
	if err != nil {
		return priority.Default()
	}
	return table
}

// charName returns a short human-readable label for a relation character,
// used by get-char/show-dependencies output.
func charName(c priority.Char) string {
	switch c {
	case priority.Self:
		return "self"
	case priority.Placeholder:
		return "placeholder"
	case priority.SemanticWeak:
		return "semantic-weak"
	case priority.SemanticStrong:
		return "semantic-strong"
	case priority.Mutual:
		return "mutual"
	case priority.DependsOn:
		return "depends-on"
	case priority.DependedOnBy:
		return "depended-on-by"
	case priority.Documents:
		return "documents"
	case priority.VerifiedNone:
		return "verified-none"
	case priority.Empty:
		return "empty"
	default:
		return "unknown"
	}
}
