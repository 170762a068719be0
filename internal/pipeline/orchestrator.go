package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/trackgrid/trackgrid/internal/keymanager"
	"github.com/trackgrid/trackgrid/internal/migration"
	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

const (
	docTrackerName  = "doc_tracker.md"
	mainTrackerName = "main_tracker.md"
)

// PathSuggestion is one proposed relation between two paths, as produced by
// an external collaborator (static analysis or embedding similarity). The
// Orchestrator resolves both paths to the current run's key strings before
// handing suggestions to TrackerUpdater, since keys are not stable across
// runs but paths are.
type PathSuggestion struct {
	SourcePath string
	TargetPath string
	Char       priority.Char
}

// ProjectInput bundles everything AnalyzeProject needs to run one
// mini -> doc -> main sequencing pass over a configured project. It
// deliberately carries no dependency on internal/config: the CLI layer
// resolves a Profile and builds one of these.
type ProjectInput struct {
	// Manager performs the filesystem walk and key assignment.
	Manager *keymanager.Manager
	// CodeRoots and DocRoots are the root directories passed to Manager.Generate.
	CodeRoots []string
	DocRoots  []string
	// ModulePaths lists the top-level module directories, one mini tracker
	// per entry.
	ModulePaths []string

	TrackersDir string
	BackupsDir  string

	// Table is the configured priority order. Nil uses priority.Default().
	Table *priority.Table
	// ForceApply is the --force-apply flag.
	ForceApply bool

	// Suggestions groups external suggestions by destination: one of the
	// entries in ModulePaths, "doc", or "main".
	Suggestions map[string][]PathSuggestion

	// ExcludeFn reports whether a path is excluded by configuration and so
	// must never enter a mini tracker's relevant set.
	ExcludeFn func(path string) bool
}

// AnalyzeProject runs one full trackgrid pass: it (re)assigns keys, builds
// the migration map against the previous run, persists the new global map,
// and updates every mini tracker, then the doc tracker, then the main
// tracker -- in that order, since main tracker suggestions are rolled up
// from mini/doc content via MainAggregator.
func AnalyzeProject(ctx context.Context, in ProjectInput) (*RunReport, error) {
	table := in.Table
	if table == nil {
		table = priority.Default()
	}

	oldMap, err := keymanager.LoadCurrentMap(in.TrackersDir)
	if err != nil {
		return nil, NewError("load previous global map", err)
	}

	rootPaths := dedupeStrings(append(append([]string{}, in.CodeRoots...), in.DocRoots...))
	genResult, err := in.Manager.Generate(ctx, rootPaths, oldMap)
	if err != nil {
		return nil, NewError("generate keys", err)
	}

	mig, err := migration.Build(oldMap, genResult.CurrentMap)
	if err != nil {
		return nil, NewError("build migration map", err)
	}

	if err := keymanager.Persist(in.TrackersDir, genResult.CurrentMap); err != nil {
		return nil, NewError("persist global map", err)
	}

	cache := tracker.NewCache()
	newKeyStrings := make([]string, 0, len(genResult.NewKeys))
	for _, ki := range genResult.NewKeys {
		newKeyStrings = append(newKeyStrings, ki.KeyString)
	}

	isDocPath := func(p string) bool { return pathUnderAny(in.DocRoots, p) }
	moduleOfPath := func(p string) (string, bool) { return longestPrefixMatch(in.ModulePaths, p) }

	miniTrackerForModule := make(map[string]tracker.TrackerRef, len(in.ModulePaths))
	miniRefs := make([]tracker.TrackerRef, 0, len(in.ModulePaths))
	for _, mod := range in.ModulePaths {
		ref := tracker.TrackerRef{Path: filepath.Join(in.TrackersDir, sanitizeModuleName(mod)+".md"), Type: tracker.Mini}
		miniTrackerForModule[mod] = ref
		miniRefs = append(miniRefs, ref)
	}
	docRef := tracker.TrackerRef{Path: filepath.Join(in.TrackersDir, docTrackerName), Type: tracker.Doc}
	mainRef := tracker.TrackerRef{Path: filepath.Join(in.TrackersDir, mainTrackerName), Type: tracker.Main}
	allTrackers := append(append([]tracker.TrackerRef{}, miniRefs...), docRef, mainRef)

	resolveMiniTracker := func(mod string) (tracker.TrackerRef, bool) {
		ref, ok := miniTrackerForModule[mod]
		return ref, ok
	}

	report := &RunReport{ID: uuid.NewString(), NewKeys: len(genResult.NewKeys)}

	for _, mod := range in.ModulePaths {
		ref := miniTrackerForModule[mod]
		res, updateErr := tracker.Update(tracker.UpdateInput{
			TrackerPath:          ref.Path,
			Type:                 tracker.Mini,
			Table:                table,
			CurrentMap:           genResult.CurrentMap,
			Migration:            mig,
			Cache:                cache,
			Suggestions:          resolveSuggestions(in.Suggestions[mod], genResult.CurrentMap),
			ForceApply:           in.ForceApply,
			NewKeys:              newKeyStrings,
			BackupsDir:           in.BackupsDir,
			ModulePath:           mod,
			ExcludeFn:            in.ExcludeFn,
			AllTrackers:          allTrackers,
			IsDocPath:            isDocPath,
			MiniTrackerForModule: resolveMiniTracker,
			ModuleOfPath:         moduleOfPath,
		})
		report.Trackers = append(report.Trackers, buildTrackerReport(ref, res, updateErr))
	}

	docPaths := pathsUnderAny(genResult.CurrentMap, in.DocRoots)
	docRes, docErr := tracker.Update(tracker.UpdateInput{
		TrackerPath:          docRef.Path,
		Type:                 tracker.Doc,
		Table:                table,
		CurrentMap:           genResult.CurrentMap,
		Migration:            mig,
		Cache:                cache,
		Suggestions:          resolveSuggestions(in.Suggestions["doc"], genResult.CurrentMap),
		ForceApply:           in.ForceApply,
		NewKeys:              newKeyStrings,
		BackupsDir:           in.BackupsDir,
		DocPaths:             docPaths,
		ExcludeFn:            in.ExcludeFn,
		AllTrackers:          allTrackers,
		IsDocPath:            isDocPath,
		MiniTrackerForModule: resolveMiniTracker,
		ModuleOfPath:         moduleOfPath,
	})
	report.Trackers = append(report.Trackers, buildTrackerReport(docRef, docRes, docErr))

	fileToModule := make(map[string]string, len(genResult.CurrentMap))
	for path := range genResult.CurrentMap {
		if mod, ok := moduleOfPath(path); ok {
			fileToModule[path] = mod
		}
	}
	moduleSugs, aggErr := tracker.AggregateModules(tracker.MainAggregatorInput{
		Refs:         append(append([]tracker.TrackerRef{}, miniRefs...), docRef),
		Migration:    mig,
		Table:        table,
		FileToModule: fileToModule,
		Cache:        cache,
	})
	if aggErr != nil {
		return report, NewError("aggregate module links", aggErr)
	}
	report.ModuleLinks = len(moduleSugs)

	mainSuggestions := resolveSuggestions(in.Suggestions["main"], genResult.CurrentMap)
	for _, s := range moduleSugs {
		srcInfo, ok1 := genResult.CurrentMap[s.Source]
		tgtInfo, ok2 := genResult.CurrentMap[s.Target]
		if !ok1 || !ok2 {
			continue
		}
		mainSuggestions[srcInfo.KeyString] = append(mainSuggestions[srcInfo.KeyString], tracker.Suggestion{
			Target: tgtInfo.KeyString,
			Char:   s.Char,
		})
	}

	mainRes, mainErr := tracker.Update(tracker.UpdateInput{
		TrackerPath:          mainRef.Path,
		Type:                 tracker.Main,
		Table:                table,
		CurrentMap:           genResult.CurrentMap,
		Migration:            mig,
		Cache:                cache,
		Suggestions:          mainSuggestions,
		ForceApply:           in.ForceApply,
		NewKeys:              newKeyStrings,
		BackupsDir:           in.BackupsDir,
		ModulePaths:          in.ModulePaths,
		FileToModule:         fileToModule,
		ExcludeFn:            in.ExcludeFn,
		AllTrackers:          allTrackers,
		IsDocPath:            isDocPath,
		MiniTrackerForModule: resolveMiniTracker,
		ModuleOfPath:         moduleOfPath,
	})
	report.Trackers = append(report.Trackers, buildTrackerReport(mainRef, mainRes, mainErr))

	return report, nil
}

func buildTrackerReport(ref tracker.TrackerRef, res *tracker.UpdateResult, err error) TrackerReport {
	tr := TrackerReport{Path: ref.Path, Type: ref.Type.String()}
	if err != nil {
		tr.Status = StatusError
		if errors.As(err, new(*tracker.IOFailure)) {
			tr.Status = StatusWarning
		}
		tr.Error = err.Error()
		return tr
	}
	tr.CellsChanged = res.CellsChanged
	tr.KeysChanged = res.KeysChanged
	tr.UnstableSkips = res.UnstableSkips
	tr.FilledSkips = res.FilledSkips
	tr.RowErrors = res.RowErrors
	tr.Status = trackerStatus(res.UnstableSkips, res.FilledSkips, res.RowErrors)
	return tr
}

func resolveSuggestions(sugs []PathSuggestion, currentMap keymanager.GlobalMap) map[string][]tracker.Suggestion {
	out := make(map[string][]tracker.Suggestion)
	for _, s := range sugs {
		srcInfo, ok := currentMap[s.SourcePath]
		if !ok {
			continue
		}
		tgtInfo, ok := currentMap[s.TargetPath]
		if !ok {
			continue
		}
		out[srcInfo.KeyString] = append(out[srcInfo.KeyString], tracker.Suggestion{Target: tgtInfo.KeyString, Char: s.Char})
	}
	return out
}

func pathUnderAny(roots []string, path string) bool {
	for _, r := range roots {
		if path == r || strings.HasPrefix(path, r+"/") {
			return true
		}
	}
	return false
}

func pathsUnderAny(currentMap keymanager.GlobalMap, roots []string) []string {
	out := make([]string, 0, len(currentMap))
	for path := range currentMap {
		if pathUnderAny(roots, path) {
			out = append(out, path)
		}
	}
	return out
}

// longestPrefixMatch returns the entry in candidates that is path or the
// deepest ancestor directory of path, so a nested module wins over an
// enclosing one.
func longestPrefixMatch(candidates []string, path string) (string, bool) {
	best := ""
	found := false
	for _, c := range candidates {
		if path != c && !strings.HasPrefix(path, c+"/") {
			continue
		}
		if !found || len(c) > len(best) {
			best = c
			found = true
		}
	}
	return best, found
}

func sanitizeModuleName(mod string) string {
	return strings.ReplaceAll(mod, "/", "_")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
