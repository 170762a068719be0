package tracker

import (
	"os"

	"github.com/trackgrid/trackgrid/internal/keycodec"
	"github.com/trackgrid/trackgrid/internal/migration"
	"github.com/trackgrid/trackgrid/internal/priority"
)

// TrackerRef names one tracker participating in aggregation.
type TrackerRef struct {
	Path string
	Type Type
}

// LinkKey identifies a directed relation between two current keys.
type LinkKey struct {
	Src string
	Tgt string
}

// LinkValue is the winning character for a LinkKey plus the set of tracker
// paths that contributed to it.
type LinkValue struct {
	Char    priority.Char
	Origins map[string]bool
}

// AggregateResult is the output of Aggregate: one winning directed relation
// per ordered key pair, across every tracker supplied.
type AggregateResult map[LinkKey]LinkValue

// Aggregate reads every tracker in refs (in order), maps each cell through
// mig to stable current keys, and keeps the highest-priority character seen
// for each ordered pair. It is pure over
// (refs, mig, the on-disk tracker contents) -- no state survives a call
// except through the optional cache.
func Aggregate(refs []TrackerRef, mig *migration.Map, table *priority.Table, cache *Cache) (AggregateResult, error) {
	result := make(AggregateResult)

	for _, ref := range refs {
		var f *File
		var err error
		if cache != nil {
			f, err = cache.ReadCached(ref.Path, ref.Type)
		} else {
			f, err = Read(ref.Path, ref.Type)
		}
		if err != nil {
			// TrackerFormatError/IOFailure: treat as an empty tracker and
			// continue -- an unreadable tracker contributes nothing rather
			// than aborting aggregation.
			continue
		}
		mergeTracker(result, f, ref.Path, mig, table)
	}

	return result, nil
}

func mergeTracker(result AggregateResult, f *File, trackerPath string, mig *migration.Map, table *priority.Table) {
	defKeys := make([]string, 0, len(f.Defs))
	for k := range f.Defs {
		defKeys = append(defKeys, k)
	}
	order := keycodec.SortHierarchical(defKeys)
	idx := f.Index()

	for _, rowOld := range order {
		for _, colOld := range order {
			if rowOld == colOld {
				continue
			}
			c, ok := f.CellAt(rowOld, colOld, idx)
			if !ok || c == priority.Self || c == priority.Empty {
				continue
			}

			rowNewKey, ok := mig.NewKeyForOldKey(rowOld)
			if !ok {
				continue
			}
			colNewKey, ok := mig.NewKeyForOldKey(colOld)
			if !ok {
				continue
			}

			link := LinkKey{Src: rowNewKey, Tgt: colNewKey}
			existing, present := result[link]
			if !present {
				result[link] = LinkValue{Char: c, Origins: map[string]bool{trackerPath: true}}
				continue
			}

			switch {
			case table.Priority(c) > table.Priority(existing.Char):
				result[link] = LinkValue{Char: c, Origins: map[string]bool{trackerPath: true}}
			case table.Priority(c) == table.Priority(existing.Char) && c == existing.Char:
				existing.Origins[trackerPath] = true
			case table.Priority(c) == table.Priority(existing.Char) && c != existing.Char:
				result[link] = LinkValue{Char: c, Origins: map[string]bool{trackerPath: true}}
			}
		}
	}
}

func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailure{Path: path, Op: "read", Err: err}
	}
	return data, nil
}
