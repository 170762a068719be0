package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trackgrid/trackgrid/internal/keycodec"
	"github.com/trackgrid/trackgrid/internal/keymanager"
	"github.com/trackgrid/trackgrid/internal/migration"
	"github.com/trackgrid/trackgrid/internal/priority"
)

// Suggestion is one proposed relation from an external analyzer (static
// analysis or embedding similarity): target key plus the proposed character.
type Suggestion struct {
	Target string
	Char   priority.Char
}

// UpdateInput bundles everything one TrackerUpdater run needs.
type UpdateInput struct {
	TrackerPath string
	Type        Type
	Table       *priority.Table
	CurrentMap  keymanager.GlobalMap
	Migration   *migration.Map
	Cache       *Cache

	// Suggestions maps source new key -> proposed (target, char) pairs.
	Suggestions map[string][]Suggestion
	// Removals is an explicit set of paths to drop from a mini tracker's
	// relevant set (e.g. from a `remove-key` command), keyed by path.
	Removals   map[string]bool
	ForceApply bool
	// NewKeys lists key strings KeyManager assigned this run that did not
	// exist, or changed, relative to the previous run -- used for the
	// last_KEY_edit message.
	NewKeys []string

	BackupsDir string

	// ModulePaths lists the top-level module directory paths for a main
	// tracker update (one entry per code root and each of its immediate
	// children).
	ModulePaths []string
	// FileToModule maps a file path to its owning module path, for
	// MainAggregator.
	FileToModule map[string]string

	// DocPaths lists every path under configured doc roots, for a doc
	// tracker update.
	DocPaths []string

	// ModulePath is the root path of the module this mini tracker covers.
	ModulePath string
	// ExcludeFn reports whether a path is excluded by configuration and so
	// must never enter a mini tracker's relevant set.
	ExcludeFn func(path string) bool

	// AllTrackers lists every tracker in the run (mini + doc + main), used
	// for global consolidation and cross-tracker import.
	AllTrackers []TrackerRef
	// IsDocPath reports whether path lives under a configured doc root.
	IsDocPath func(path string) bool
	// MiniTrackerForModule resolves a module path to its mini tracker ref.
	MiniTrackerForModule func(modulePath string) (TrackerRef, bool)
	// ModuleOfPath resolves a code path to its owning top-level module path.
	ModuleOfPath func(path string) (string, bool)
}

// UpdateResult reports what an update run changed, for the structured
// per-stage report fed back into the overall run summary.
type UpdateResult struct {
	CellsChanged  int
	KeysChanged   bool
	UnstableSkips int
	FilledSkips   int
	RowErrors     int
}

// Update runs the full per-tracker update algorithm and writes the result
// atomically.
func Update(in UpdateInput) (*UpdateResult, error) {
	res := &UpdateResult{}

	var existing *File
	var err error
	if in.Cache != nil {
		existing, err = in.Cache.ReadCached(in.TrackerPath, in.Type)
	} else {
		existing, err = Read(in.TrackerPath, in.Type)
	}
	if err != nil {
		if errors.As(err, new(*IOFailure)) {
			return nil, err
		}
		existing = &File{Path: in.TrackerPath, Type: in.Type, Defs: map[string]string{}, Rows: map[string]string{}}
	}

	finalKeys, finalDefs, err := computeFinalKeySet(in, existing)
	if err != nil {
		return nil, err
	}

	res.KeysChanged = keySetChanged(existing.Defs, finalDefs)

	mtx := newMatrix(finalKeys)

	migrateGrid(mtx, existing, in.Migration, in.Table, res)

	if in.Type == Doc || in.Type == Mini {
		applyStructuralRules(mtx, finalKeys, finalDefs, in.Type, in.CurrentMap)
	}

	applySuggestions(mtx, in.Suggestions, in.Table, in.ForceApply, res)

	if in.Type == Mini {
		crossTrackerImport(mtx, finalKeys, finalDefs, in)
	}

	globalConsolidate(mtx, finalKeys, in, res)

	lastKeyEdit := metadataKeyEdit(existing, finalKeys, finalDefs, in.NewKeys)
	lastGridEdit := metadataGridEdit(existing, res, in.ForceApply)

	rows := make(map[string]string, len(finalKeys))
	for _, k := range finalKeys {
		rows[k] = mtx.row(k)
	}

	wi := WriteInput{
		PreambleBefore: existing.PreambleBefore,
		PreambleAfter:  existing.PreambleAfter,
		Keys:           finalKeys,
		Defs:           finalDefs,
		LastKeyEdit:    lastKeyEdit,
		LastGridEdit:   lastGridEdit,
		Rows:           rows,
	}
	if in.Type == Mini && wi.PreambleBefore == "" && wi.PreambleAfter == "" {
		wi.PreambleBefore = Template(in.ModulePath)
	}

	if err := Write(in.TrackerPath, in.Type, wi, WriteOptions{BackupsDir: in.BackupsDir}); err != nil {
		return res, err
	}
	if in.Cache != nil {
		in.Cache.Invalidate(in.TrackerPath)
	}
	return res, nil
}

// computeFinalKeySet resolves, per tracker type, the final hierarchically
// sorted key list and key->path definitions (step a).
func computeFinalKeySet(in UpdateInput, existing *File) ([]string, map[string]string, error) {
	switch in.Type {
	case Main:
		return keysForPaths(in.ModulePaths, in.CurrentMap)
	case Doc:
		return keysForPaths(in.DocPaths, in.CurrentMap)
	case Mini:
		paths, err := miniRelevantPaths(in, existing)
		if err != nil {
			return nil, nil, err
		}
		return keysForPaths(paths, in.CurrentMap)
	default:
		return nil, nil, fmt.Errorf("tracker: unknown tracker type %v", in.Type)
	}
}

func keysForPaths(paths []string, currentMap keymanager.GlobalMap) ([]string, map[string]string, error) {
	defs := make(map[string]string, len(paths))
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		info, ok := currentMap[p]
		if !ok {
			continue
		}
		keys = append(keys, info.KeyString)
		defs[info.KeyString] = info.NormPath
	}
	return keycodec.SortHierarchical(keys), defs, nil
}

// miniRelevantPaths computes the relevant key set for a mini tracker.
func miniRelevantPaths(in UpdateInput, existing *File) ([]string, error) {
	relevant := make(map[string]bool)

	isInternal := func(path string) bool {
		return path == in.ModulePath || strings.HasPrefix(path, in.ModulePath+"/")
	}

	for path, info := range in.CurrentMap {
		if isInternal(path) {
			relevant[info.NormPath] = true
		}
	}

	idx := existing.Index()
	defKeys := make([]string, 0, len(existing.Defs))
	for k := range existing.Defs {
		defKeys = append(defKeys, k)
	}
	order := keycodec.SortHierarchical(defKeys)
	for _, rowKey := range order {
		for _, colKey := range order {
			if rowKey == colKey {
				continue
			}
			c, ok := existing.CellAt(rowKey, colKey, idx)
			if !ok {
				continue
			}
			if in.Table.Priority(c) < in.Table.Priority(priority.SemanticWeak) || c == priority.VerifiedNone {
				continue
			}
			if !keycodec.IsFileTier(rowKey) || !keycodec.IsFileTier(colKey) {
				continue
			}
			rowPath, _, rowOK := resolveOldKey(rowKey, in.Migration)
			colPath, _, colOK := resolveOldKey(colKey, in.Migration)
			if !rowOK || !colOK {
				continue
			}
			rowIn, colIn := isInternal(rowPath), isInternal(colPath)
			if rowIn == colIn {
				continue // need exactly one endpoint internal
			}
			if rowIn {
				relevant[colPath] = true
			} else {
				relevant[rowPath] = true
			}
		}
	}

	for src, sugs := range in.Suggestions {
		srcPath, ok := in.Migration.PathForNewKey(src)
		if !ok {
			continue
		}
		for _, s := range sugs {
			if in.Table.Priority(s.Char) < in.Table.Priority(priority.SemanticWeak) {
				continue
			}
			tgtPath, ok := in.Migration.PathForNewKey(s.Target)
			if !ok {
				continue
			}
			srcIn, tgtIn := isInternal(srcPath), isInternal(tgtPath)
			if srcIn == tgtIn {
				continue
			}
			foreign := tgtPath
			if tgtIn {
				foreign = srcPath
			}
			if in.ExcludeFn != nil && in.ExcludeFn(foreign) {
				continue
			}
			relevant[foreign] = true
		}
	}

	for path := range in.Removals {
		delete(relevant, path)
	}

	out := make([]string, 0, len(relevant))
	for path := range relevant {
		if in.ExcludeFn != nil && in.ExcludeFn(path) {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func resolveOldKey(oldKey string, mig *migration.Map) (path string, newKey string, ok bool) {
	path, ok = mig.PathForOldKey(oldKey)
	if !ok {
		return "", "", false
	}
	newKey, ok = mig.NewKeyForOldKey(oldKey)
	if !ok {
		return "", "", false
	}
	return path, newKey, true
}

func keySetChanged(oldDefs, newDefs map[string]string) bool {
	if len(oldDefs) != len(newDefs) {
		return true
	}
	for k, v := range newDefs {
		if oldDefs[k] != v {
			return true
		}
	}
	return false
}

// migrateGrid implements step b: copy every stable cell of the prior grid
// into the freshly initialized matrix, via the migration map.
func migrateGrid(mtx *matrix, existing *File, mig *migration.Map, table *priority.Table, res *UpdateResult) {
	idx := existing.Index()
	defKeys := make([]string, 0, len(existing.Defs))
	for k := range existing.Defs {
		defKeys = append(defKeys, k)
	}
	order := keycodec.SortHierarchical(defKeys)

	for _, rowOld := range order {
		for _, colOld := range order {
			if rowOld == colOld {
				continue
			}
			v, ok := existing.CellAt(rowOld, colOld, idx)
			if !ok {
				res.RowErrors++
				continue
			}
			if v == priority.Self || v == priority.Placeholder || v == priority.Empty {
				continue
			}

			_, rowNewKey, rowOK := resolveOldKey(rowOld, mig)
			_, colNewKey, colOK := resolveOldKey(colOld, mig)
			if !rowOK || !colOK {
				res.UnstableSkips++
				continue
			}
			if _, ok := mtx.idx[rowNewKey]; !ok {
				res.FilledSkips++
				continue
			}
			if _, ok := mtx.idx[colNewKey]; !ok {
				res.FilledSkips++
				continue
			}

			current, _ := mtx.get(rowNewKey, colNewKey)
			if current != priority.Placeholder {
				res.FilledSkips++
				mtx.set(rowNewKey, colNewKey, table.MaxOf(current, v))
				continue
			}
			mtx.set(rowNewKey, colNewKey, v)
		}
	}
}

// applyStructuralRules implements step c.
func applyStructuralRules(mtx *matrix, finalKeys []string, finalDefs map[string]string, typ Type, currentMap keymanager.GlobalMap) {
	isDir := func(path string) bool {
		info, ok := currentMap[path]
		return ok && info.IsDirectory
	}
	ancestor := func(a, b string) bool {
		pa, pb := finalDefs[a], finalDefs[b]
		return pa != pb && isDir(pa) && (pb == pa || strings.HasPrefix(pb, pa+"/"))
	}

	for _, a := range finalKeys {
		for _, b := range finalKeys {
			if a == b {
				continue
			}
			if ancestor(a, b) || ancestor(b, a) {
				ca, _ := mtx.get(a, b)
				cb, _ := mtx.get(b, a)
				if ca == priority.Placeholder {
					mtx.set(a, b, priority.Mutual)
				}
				if cb == priority.Placeholder {
					mtx.set(b, a, priority.Mutual)
				}
			} else if typ == Doc {
				ca, _ := mtx.get(a, b)
				if ca == priority.Placeholder {
					mtx.set(a, b, priority.VerifiedNone)
				}
			}
		}
	}
}

// applySuggestions implements step d, including reciprocity and mutuality
// collapse.
func applySuggestions(mtx *matrix, suggestions map[string][]Suggestion, table *priority.Table, forceApply bool, res *UpdateResult) {
	for src, sugs := range suggestions {
		for _, s := range sugs {
			applyOne(mtx, src, s.Target, s.Char, table, forceApply, res)
		}
	}
}

func applyOne(mtx *matrix, src, tgt string, c priority.Char, table *priority.Table, forceApply bool, res *UpdateResult) {
	current, ok := mtx.get(src, tgt)
	if !ok {
		return
	}

	switch {
	case forceApply && c != priority.Placeholder && c != current:
		mtx.set(src, tgt, c)
		res.CellsChanged++
	case current == priority.Placeholder && c != priority.Placeholder:
		mtx.set(src, tgt, c)
		res.CellsChanged++
	case current != priority.Self && current != priority.Placeholder && current != c && current != priority.VerifiedNone && table.Higher(c, current):
		mtx.set(src, tgt, c)
		res.CellsChanged++
	}

	if !priority.Directional(c) {
		return
	}
	forward, _ := mtx.get(src, tgt)
	if forward != c {
		return
	}
	reverse, ok := mtx.get(tgt, src)
	if !ok {
		return
	}
	if reverse == c {
		mtx.set(src, tgt, priority.Mutual)
		mtx.set(tgt, src, priority.Mutual)
		res.CellsChanged++
		return
	}

	recip := priority.Reverse(c)
	switch {
	case forceApply && recip != priority.Placeholder && recip != reverse:
		mtx.set(tgt, src, recip)
		res.CellsChanged++
	case reverse == priority.Placeholder:
		mtx.set(tgt, src, recip)
		res.CellsChanged++
	case reverse != priority.Self && reverse != priority.Placeholder && reverse != recip && reverse != priority.VerifiedNone && table.Higher(recip, reverse):
		mtx.set(tgt, src, recip)
		res.CellsChanged++
	}
}

// crossTrackerImport implements step e, mini trackers only.
func crossTrackerImport(mtx *matrix, finalKeys []string, finalDefs map[string]string, in UpdateInput) {
	internal := make(map[string]bool, len(finalKeys))
	for _, k := range finalKeys {
		internal[k] = finalDefs[k] == in.ModulePath || strings.HasPrefix(finalDefs[k], in.ModulePath+"/")
	}

	for _, a := range finalKeys {
		for _, b := range finalKeys {
			if a == b {
				continue
			}
			aIn, bIn := internal[a], internal[b]
			if aIn && bIn {
				continue
			}
			homeRef, ok := homeTrackerFor(finalDefs[a], finalDefs[b], aIn, bIn, in)
			if !ok {
				continue
			}
			var homeFile *File
			var err error
			if in.Cache != nil {
				homeFile, err = in.Cache.ReadCached(homeRef.Path, homeRef.Type)
			} else {
				homeFile, err = Read(homeRef.Path, homeRef.Type)
			}
			if err != nil {
				continue
			}
			homeChar, ok := lookupByPath(homeFile, finalDefs[a], finalDefs[b])
			if !ok {
				continue
			}
			local, _ := mtx.get(a, b)
			importCell(mtx, a, b, local, homeChar, !aIn && !bIn)
		}
	}
}

func homeTrackerFor(pathA, pathB string, aIn, bIn bool, in UpdateInput) (TrackerRef, bool) {
	if in.IsDocPath != nil && in.IsDocPath(pathA) && in.IsDocPath(pathB) {
		for _, ref := range in.AllTrackers {
			if ref.Type == Doc {
				return ref, true
			}
		}
		return TrackerRef{}, false
	}

	parentA, parentB := parentDir(pathA), parentDir(pathB)
	if !aIn && !bIn && parentA == parentB && in.ModuleOfPath != nil {
		if mod, ok := in.ModuleOfPath(pathA); ok {
			if ref, ok := in.MiniTrackerForModule(mod); ok {
				return ref, true
			}
		}
	}

	foreign := pathB
	if bIn {
		foreign = pathA
	}
	if in.ModuleOfPath == nil || in.MiniTrackerForModule == nil {
		return TrackerRef{}, false
	}
	mod, ok := in.ModuleOfPath(foreign)
	if !ok {
		return TrackerRef{}, false
	}
	return in.MiniTrackerForModule(mod)
}

func parentDir(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func lookupByPath(f *File, pathA, pathB string) (priority.Char, bool) {
	var keyA, keyB string
	for k, p := range f.Defs {
		if p == pathA {
			keyA = k
		}
		if p == pathB {
			keyB = k
		}
	}
	if keyA == "" || keyB == "" {
		return 0, false
	}
	defKeys := make([]string, 0, len(f.Defs))
	for k := range f.Defs {
		defKeys = append(defKeys, k)
	}
	order := keycodec.SortHierarchical(defKeys)
	idx := make(map[string]int, len(order))
	for i, k := range order {
		idx[k] = i
	}
	return f.CellAt(keyA, keyB, idx)
}

func importCell(mtx *matrix, a, b string, local, home priority.Char, bothForeign bool) {
	overwritable := local == priority.Placeholder || local == priority.SemanticWeak || local == priority.SemanticStrong || local == priority.VerifiedNone
	verifiedPositive := home == priority.DependsOn || home == priority.DependedOnBy || home == priority.Mutual || home == priority.Documents

	switch {
	case overwritable && verifiedPositive:
		mtx.set(a, b, home)
	case (local == priority.Placeholder || local == priority.SemanticWeak || local == priority.SemanticStrong) && home == priority.VerifiedNone:
		mtx.set(a, b, home)
	case bothForeign && local == priority.Placeholder && home == priority.Placeholder:
		mtx.set(a, b, priority.VerifiedNone)
	}
}

// globalConsolidate implements step f.
func globalConsolidate(mtx *matrix, finalKeys []string, in UpdateInput, res *UpdateResult) {
	if len(in.AllTrackers) == 0 {
		return
	}
	var agg AggregateResult
	var err error
	if in.Cache != nil {
		agg, err = in.Cache.AggregateCached(in.AllTrackers, in.Migration, in.Table)
	} else {
		agg, err = Aggregate(in.AllTrackers, in.Migration, in.Table, in.Cache)
	}
	if err != nil {
		return
	}
	for _, a := range finalKeys {
		for _, b := range finalKeys {
			if a == b {
				continue
			}
			local, _ := mtx.get(a, b)
			winner, ok := agg[LinkKey{Src: a, Tgt: b}]
			if !ok {
				continue
			}
			if in.Table.Higher(winner.Char, local) {
				mtx.set(a, b, winner.Char)
				res.CellsChanged++
			} else if winner.Char == priority.VerifiedNone && (local == priority.Placeholder || local == priority.SemanticWeak || local == priority.SemanticStrong) {
				mtx.set(a, b, winner.Char)
				res.CellsChanged++
			}
		}
	}
}

// metadataKeyEdit implements the last_KEY_edit half of step g.
func metadataKeyEdit(existing *File, finalKeys []string, finalDefs map[string]string, newKeys []string) string {
	var added, removed []string
	for _, k := range finalKeys {
		if _, ok := existing.Defs[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range existing.Defs {
		found := false
		for _, fk := range finalKeys {
			if fk == k {
				found = true
				break
			}
		}
		if !found {
			removed = append(removed, k)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return existing.LastKeyEdit
	}
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("added %s", strings.Join(added, ", ")))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("removed %s", strings.Join(removed, ", ")))
	}
	return "Keys " + strings.Join(parts, "; ")
}

// metadataGridEdit implements the last_GRID_edit half of step g.
func metadataGridEdit(existing *File, res *UpdateResult, forceApply bool) string {
	switch {
	case res.CellsChanged == 1 && forceApply && !res.KeysChanged:
		return "Force-applied suggestion"
	case res.CellsChanged > 0:
		return "Grid content updated"
	case res.KeysChanged:
		return "Grid structure updated"
	default:
		return existing.LastGridEdit
	}
}
