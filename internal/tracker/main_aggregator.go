package tracker

import (
	"github.com/trackgrid/trackgrid/internal/migration"
	"github.com/trackgrid/trackgrid/internal/priority"
)

// ModuleSuggestion is one inter-module relation MainAggregator proposes for
// the main tracker.
type ModuleSuggestion struct {
	Source string
	Target string
	Char   priority.Char
}

// MainAggregatorInput bundles the inputs AggregateModules needs.
type MainAggregatorInput struct {
	Refs         []TrackerRef // every mini and doc tracker in the run
	Migration    *migration.Map
	Table        *priority.Table
	FileToModule map[string]string
	Cache        *Cache
}

// AggregateModules rolls up file-level links from every mini and doc
// tracker into module-level suggestions for the main tracker. Intra-module
// links and placeholder/self characters are ignored.
func AggregateModules(in MainAggregatorInput) ([]ModuleSuggestion, error) {
	var fileLinks AggregateResult
	var err error
	if in.Cache != nil {
		fileLinks, err = in.Cache.AggregateCached(in.Refs, in.Migration, in.Table)
	} else {
		fileLinks, err = Aggregate(in.Refs, in.Migration, in.Table, in.Cache)
	}
	if err != nil {
		return nil, err
	}

	type modulePair struct{ src, tgt string }
	acc := make(map[modulePair]priority.Char)

	for link, value := range fileLinks {
		if value.Char == priority.Placeholder || value.Char == priority.Self {
			continue
		}
		srcPath, ok := in.Migration.PathForNewKey(link.Src)
		if !ok {
			continue
		}
		tgtPath, ok := in.Migration.PathForNewKey(link.Tgt)
		if !ok {
			continue
		}
		srcMod, ok := in.FileToModule[srcPath]
		if !ok {
			continue
		}
		tgtMod, ok := in.FileToModule[tgtPath]
		if !ok {
			continue
		}
		if srcMod == tgtMod {
			continue
		}
		key := modulePair{srcMod, tgtMod}
		if existing, ok := acc[key]; !ok || in.Table.Higher(value.Char, existing) {
			acc[key] = value.Char
		}
	}

	out := make([]ModuleSuggestion, 0, len(acc))
	for pair, c := range acc {
		out = append(out, ModuleSuggestion{Source: pair.src, Target: pair.tgt, Char: c})
	}
	return out, nil
}
