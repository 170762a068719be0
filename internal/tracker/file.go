package tracker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/trackgrid/trackgrid/internal/gridcodec"
	"github.com/trackgrid/trackgrid/internal/keycodec"
	"github.com/trackgrid/trackgrid/internal/priority"
)

const (
	keyDefStartMarker = "---KEY_DEFINITIONS_START---"
	keyDefEndMarker   = "---KEY_DEFINITIONS_END---"
	gridStartMarker   = "---GRID_START---"
	gridEndMarker     = "---GRID_END---"

	// preserveStartMarker/preserveEndMarker bracket the managed block within
	// a mini tracker. Content outside this pair is a user's free-form notes
	// and is copied back verbatim on every write; content between the
	// markers is entirely regenerated.
	preserveStartMarker = "<!-- TRACKGRID_PRESERVE_START -->"
	preserveEndMarker   = "<!-- TRACKGRID_PRESERVE_END -->"
)

var (
	keyDefBlockRe  = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(keyDefStartMarker) + `(.*?)` + regexp.QuoteMeta(keyDefEndMarker))
	gridBlockRe    = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(gridStartMarker) + `(.*?)` + regexp.QuoteMeta(gridEndMarker))
	lastKeyEditRe  = regexp.MustCompile(`(?m)^last_KEY_edit:\s*(.*)$`)
	lastGridEditRe = regexp.MustCompile(`(?m)^last_GRID_edit:\s*(.*)$`)
	keyDefLineRe   = regexp.MustCompile(`^(\S+):\s*(.+)$`)
	gridRowLineRe  = regexp.MustCompile(`^(\S+)\s*=\s*(\S*)$`)
)

// File is a parsed tracker: key definitions, metadata lines, and the raw
// (still-compressed) grid as read from disk, plus whatever preservation
// preamble a mini tracker carries.
type File struct {
	Path Path
	Type Type

	// PreambleBefore/PreambleAfter hold a mini tracker's user-authored notes
	// living outside the preservation markers. Always empty for main/doc.
	PreambleBefore string
	PreambleAfter  string

	// Defs is key -> normalized path, as read. Not necessarily hierarchically
	// sorted or consistent with GridKeys -- callers reconcile via MigrationMap.
	Defs map[string]string

	LastKeyEdit  string
	LastGridEdit string

	// GridKeys is the column/row order declared by the grid header, as read.
	GridKeys []string
	// Rows is key -> RLE row string, as read.
	Rows map[string]string
}

// Path is a thin alias kept for readability at call sites; it is always a
// filesystem path.
type Path = string

// logger is the package-wide logger used for tolerated parse warnings.
var logger = slog.Default().With("component", "tracker")

// Read loads and parses the tracker file at path. A missing file is not an
// error: it yields an empty File, as for a brand-new tracker. Any other read
// failure is reported as an *IOFailure alongside an empty File so the caller
// can continue with an empty prior grid.
func Read(path string, typ Type) (*File, error) {
	empty := &File{Path: path, Type: typ, Defs: map[string]string{}, Rows: map[string]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, &IOFailure{Path: path, Op: "read", Err: err}
	}
	return Parse(path, typ, data)
}

// Parse parses raw tracker content without touching disk.
func Parse(path string, typ Type, data []byte) (*File, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	f := &File{Path: path, Type: typ, Defs: map[string]string{}, Rows: map[string]string{}}

	managed := content
	if typ == Mini {
		si := strings.Index(content, preserveStartMarker)
		ei := strings.Index(content, preserveEndMarker)
		if si >= 0 && ei > si {
			f.PreambleBefore = content[:si]
			managed = content[si+len(preserveStartMarker) : ei]
			f.PreambleAfter = content[ei+len(preserveEndMarker):]
		}
	}

	if m := keyDefBlockRe.FindStringSubmatch(managed); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" || line == "Key Definitions:" {
				continue
			}
			kv := keyDefLineRe.FindStringSubmatch(line)
			if kv == nil {
				logger.Warn("skipping unparseable key definition line", "path", path, "line", line)
				continue
			}
			key, defPath := kv[1], strings.TrimSpace(kv[2])
			if !keycodec.Validate(key) {
				logger.Warn("skipping key definition with invalid key", "path", path, "key", key)
				continue
			}
			f.Defs[key] = filepath.ToSlash(defPath)
		}
	}

	if m := lastKeyEditRe.FindStringSubmatch(managed); m != nil {
		f.LastKeyEdit = strings.TrimSpace(m[1])
	}
	if m := lastGridEditRe.FindStringSubmatch(managed); m != nil {
		f.LastGridEdit = strings.TrimSpace(m[1])
	}

	if m := gridBlockRe.FindStringSubmatch(managed); m != nil {
		lines := strings.Split(strings.Trim(m[1], "\n"), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if i == 0 || strings.HasPrefix(line, "X ") || line == "X" {
				fields := strings.Fields(line)
				if len(fields) > 0 && fields[0] == "X" {
					f.GridKeys = fields[1:]
					continue
				}
			}
			rm := gridRowLineRe.FindStringSubmatch(line)
			if rm == nil {
				logger.Warn("skipping unparseable grid row line", "path", path, "line", line)
				continue
			}
			f.Rows[rm[1]] = rm[2]
		}
	}

	return f, nil
}

// ColIndex returns the position of key in the grid header as read, or
// false if it is absent.
func (f *File) ColIndex(key string) (int, bool) {
	for i, k := range f.GridKeys {
		if k == key {
			return i, true
		}
	}
	return -1, false
}

// Index builds a key -> column position map from GridKeys, for callers that
// look up many cells and want to avoid the O(n) scan in ColIndex.
func (f *File) Index() map[string]int {
	idx := make(map[string]int, len(f.GridKeys))
	for i, k := range f.GridKeys {
		idx[k] = i
	}
	return idx
}

// CellAt returns the character at (rowKey, colKey) as read from disk, using
// the file's own grid header order. It does not consult any migration map.
func (f *File) CellAt(rowKey, colKey string, colIdx map[string]int) (priority.Char, bool) {
	rle, ok := f.Rows[rowKey]
	if !ok {
		return 0, false
	}
	i, ok := colIdx[colKey]
	if !ok {
		return 0, false
	}
	c, err := gridcodec.GetAt(rle, i)
	if err != nil {
		return 0, false
	}
	return priority.Char(c), true
}

// WriteInput is the fully-resolved content a caller (TrackerUpdater) wants
// written. Keys need not be pre-sorted; Write sorts them. Rows holds raw
// (decompressed) characters, one string of length len(Keys) per key; a
// missing or malformed entry is rebuilt as all-placeholder with the
// diagonal restored.
type WriteInput struct {
	PreambleBefore string // mini only
	PreambleAfter  string // mini only
	Keys           []string
	Defs           map[string]string
	LastKeyEdit    string
	LastGridEdit   string
	Rows           map[string]string
}

// WriteOptions controls backup behavior.
type WriteOptions struct {
	// BackupsDir, if non-empty, receives a timestamped copy of the existing
	// file (if any) before it is overwritten. Only the two most recent
	// backups per base file are retained.
	BackupsDir string
}

// Write validates that every key has exactly one definition and that every
// row is well-formed, backs up any existing file, and atomically writes the
// tracker at path.
func Write(path string, typ Type, in WriteInput, opts WriteOptions) error {
	sortedKeys := keycodec.SortHierarchical(in.Keys)
	n := len(sortedKeys)

	if len(in.Defs) != n {
		return &TrackerFormatError{Path: path, Reason: fmt.Sprintf("%d definitions for %d keys", len(in.Defs), n)}
	}
	for _, k := range sortedKeys {
		if _, ok := in.Defs[k]; !ok {
			return &TrackerFormatError{Path: path, Reason: fmt.Sprintf("key %s has no definition", k)}
		}
	}

	rows := make(map[string]string, n)
	for i, k := range sortedKeys {
		raw, ok := in.Rows[k]
		if !ok || len(raw) != n || raw[i] != byte(priority.Self) {
			raw = rebuiltPlaceholderRow(n, i)
		}
		rows[k] = gridcodec.Compress(raw)
		if err := gridcodec.ValidateRow(rows[k], n, i, byte(priority.Self)); err != nil {
			return &GridShapeError{Key: k, Reason: err.Error()}
		}
	}

	if opts.BackupsDir != "" {
		if err := backup(path, opts.BackupsDir); err != nil {
			return &IOFailure{Path: path, Op: "backup", Err: err}
		}
	}

	managed := renderManaged(sortedKeys, in.Defs, in.LastKeyEdit, in.LastGridEdit, rows)

	var out strings.Builder
	if typ == Mini {
		before := in.PreambleBefore
		if before != "" && !strings.HasSuffix(before, "\n") {
			before += "\n"
		}
		out.WriteString(before)
		out.WriteString(preserveStartMarker + "\n")
		out.WriteString(managed)
		out.WriteString(preserveEndMarker + "\n")
		out.WriteString(in.PreambleAfter)
	} else {
		out.WriteString(managed)
	}

	if err := atomicWrite(path, []byte(out.String())); err != nil {
		return &IOFailure{Path: path, Op: "write", Err: err}
	}
	return nil
}

func rebuiltPlaceholderRow(n, diagonalIdx int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(priority.Placeholder)
	}
	buf[diagonalIdx] = byte(priority.Self)
	return string(buf)
}

func renderManaged(keys []string, defs map[string]string, lastKeyEdit, lastGridEdit string, rows map[string]string) string {
	var b strings.Builder
	b.WriteString(keyDefStartMarker + "\n")
	b.WriteString("Key Definitions:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, defs[k])
	}
	b.WriteString(keyDefEndMarker + "\n\n")
	fmt.Fprintf(&b, "last_KEY_edit: %s\n", lastKeyEdit)
	fmt.Fprintf(&b, "last_GRID_edit: %s\n\n", lastGridEdit)
	b.WriteString(gridStartMarker + "\n")
	b.WriteString("X " + strings.Join(keys, " ") + "\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, rows[k])
	}
	b.WriteString(gridEndMarker + "\n")
	return b.String()
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tracker-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file onto %s: %w", path, err)
	}
	return nil
}
