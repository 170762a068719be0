package config

// Config is the top-level configuration type parsed from a trackgrid.toml
// file. It holds a map of named profiles keyed by profile name. Profile
// names are case-sensitive. The special name "default" is the built-in
// fallback profile.
type Config struct {
	// Profile maps profile names to their configuration. Access via
	// cfg.Profile["default"] or cfg.Profile["billing-service"].
	Profile map[string]*Profile `toml:"profile"`
}

// Profile defines all settings for a single named profile. Fields with zero
// values are considered unset and will be filled in by the merge/inheritance
// pipeline. The Extends field enables profile inheritance, letting a
// monorepo define one base profile and a thin override per module.
type Profile struct {
	// Extends is the name of a parent profile to inherit from. When set,
	// all unset fields in this profile are filled from the named parent.
	// A nil pointer means no inheritance.
	Extends *string `toml:"extends"`

	// CodeRoots lists the top-level directories scanned for dependency
	// tracking. Each entry also becomes one module boundary: a mini
	// tracker is maintained per root.
	CodeRoots []string `toml:"code_roots"`

	// DocRoots lists directories whose contents are tracked in the doc
	// tracker rather than any mini tracker.
	DocRoots []string `toml:"doc_roots"`

	// ExcludeDirs names directories skipped entirely during the walk
	// (matched by basename at any depth).
	ExcludeDirs []string `toml:"exclude_dirs"`

	// ExcludePaths lists exact repo-relative paths to skip.
	ExcludePaths []string `toml:"exclude_paths"`

	// ExcludeExtensions lists file extensions (including the leading dot)
	// to skip.
	ExcludeExtensions []string `toml:"exclude_extensions"`

	// ExcludePatterns lists doublestar glob patterns to skip.
	ExcludePatterns []string `toml:"exclude_patterns"`

	// TrackersDir is the directory holding the mini/doc/main tracker files
	// and the global key maps, relative to the project root.
	TrackersDir string `toml:"trackers_dir"`

	// BackupsDir is the directory holding timestamped tracker backups
	// taken before any destructive key remap, relative to the project root.
	BackupsDir string `toml:"backups_dir"`

	// PriorityOrder is the ascending priority list of relationship
	// characters, weakest first, used to resolve conflicting suggestions
	// during aggregation and consolidation. It is fed directly into
	// priority.NewTable, whose rank is the slice index.
	PriorityOrder []string `toml:"priority_order"`

	// ForceApply, when true, lets a suggestion overwrite a cell marked
	// VerifiedNone ("n") that would otherwise be protected.
	ForceApply bool `toml:"force_apply"`
}
