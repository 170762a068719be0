// Package cli implements the Cobra command hierarchy for the trackgrid CLI
// tool. This file provides the shared config-resolution and ProjectInput
// construction used by every subcommand that touches trackers.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/trackgrid/trackgrid/internal/config"
	"github.com/trackgrid/trackgrid/internal/keymanager"
	"github.com/trackgrid/trackgrid/internal/pipeline"
	"github.com/trackgrid/trackgrid/internal/priority"
)

// resolveActiveConfig runs the full 5-layer resolution pipeline using the
// global flag values populated by PersistentPreRunE.
func resolveActiveConfig(fv *config.FlagValues) (*config.ResolvedConfig, error) {
	cliFlags := map[string]any{}
	if fv.ForceApply {
		cliFlags["force_apply"] = true
	}

	rc, err := config.Resolve(config.ResolveOptions{
		ProfileName: fv.Profile,
		ProfileFile: fv.ProfileFile,
		TargetDir:   fv.Dir,
		CLIFlags:    cliFlags,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving configuration: %w", err)
	}
	return rc, nil
}

// buildPriorityTable converts a profile's PriorityOrder strings (ascending,
// weakest first -- the same convention priority.NewTable's order parameter
// uses) into a priority.Table, falling back to priority.Default() when the
// profile does not configure one.
func buildPriorityTable(order []string) (*priority.Table, error) {
	if len(order) == 0 {
		return priority.Default(), nil
	}
	chars := make([]priority.Char, 0, len(order))
	for _, s := range order {
		if len(s) != 1 {
			return nil, fmt.Errorf("priority_order: %q is not a single relation character", s)
		}
		chars = append(chars, priority.Char(s[0]))
	}
	return priority.NewTable(chars)
}

// buildExcludeFn constructs the path-exclusion predicate handed to
// pipeline.ProjectInput.ExcludeFn from a profile's four exclusion sources.
// relPath arrives relative to baseDir; the absolute form is reconstructed
// here because AbsPaths matching in keymanager.Matcher compares against a
// real filesystem path, not the repo-relative one the orchestrator deals in.
func buildExcludeFn(p *config.Profile, baseDir string) func(string) bool {
	matcher := keymanager.NewMatcher(keymanager.ExcludeConfig{
		DirNames:   p.ExcludeDirs,
		AbsPaths:   p.ExcludePaths,
		Extensions: p.ExcludeExtensions,
		Patterns:   p.ExcludePatterns,
	})
	return func(relPath string) bool {
		abs := filepath.Join(baseDir, filepath.FromSlash(relPath))
		return matcher.IsExcludedPath(relPath, abs, false)
	}
}

// buildProjectInput assembles a pipeline.ProjectInput from a resolved
// profile, ready to pass to pipeline.AnalyzeProject. One mini tracker is
// maintained per configured code root.
func buildProjectInput(p *config.Profile, baseDir string) (pipeline.ProjectInput, error) {
	table, err := buildPriorityTable(p.PriorityOrder)
	if err != nil {
		return pipeline.ProjectInput{}, fmt.Errorf("priority_order: %w", err)
	}

	excludes := keymanager.NewMatcher(keymanager.ExcludeConfig{
		DirNames:   p.ExcludeDirs,
		AbsPaths:   p.ExcludePaths,
		Extensions: p.ExcludeExtensions,
		Patterns:   p.ExcludePatterns,
	})
	mgr := keymanager.NewManager(baseDir, nil, excludes)

	return pipeline.ProjectInput{
		Manager:     mgr,
		CodeRoots:   p.CodeRoots,
		DocRoots:    p.DocRoots,
		ModulePaths: p.CodeRoots,
		TrackersDir: resolvePath(baseDir, p.TrackersDir),
		BackupsDir:  resolvePath(baseDir, p.BackupsDir),
		Table:       table,
		ForceApply:  p.ForceApply,
		ExcludeFn:   buildExcludeFn(p, baseDir),
	}, nil
}

// resolvePath joins a profile-relative directory (trackers_dir, backups_dir)
// onto baseDir unless it is already absolute.
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
