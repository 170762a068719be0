package config

// mergeProfile creates a new Profile by applying override on top of base.
// The merge rules are:
//   - String scalars: use override if non-empty; otherwise keep base.
//   - Bool scalars: always use override (false is a valid override value).
//   - Slice fields: use override slice if it is non-nil and non-empty;
//     otherwise keep base slice.
//
// Neither base nor override is mutated. A fresh Profile is always returned.
// The Extends field is always cleared on the returned profile.
func mergeProfile(base, override *Profile) *Profile {
	return &Profile{
		// Scalar: string
		TrackersDir: mergeString(base.TrackersDir, override.TrackersDir),
		BackupsDir:  mergeString(base.BackupsDir, override.BackupsDir),

		// Scalar: bool -- override always wins (false is meaningful)
		ForceApply: override.ForceApply,

		// Slices: child replaces parent entirely when non-nil and non-empty
		CodeRoots:         mergeSlice(base.CodeRoots, override.CodeRoots),
		DocRoots:          mergeSlice(base.DocRoots, override.DocRoots),
		ExcludeDirs:       mergeSlice(base.ExcludeDirs, override.ExcludeDirs),
		ExcludePaths:      mergeSlice(base.ExcludePaths, override.ExcludePaths),
		ExcludeExtensions: mergeSlice(base.ExcludeExtensions, override.ExcludeExtensions),
		ExcludePatterns:   mergeSlice(base.ExcludePatterns, override.ExcludePatterns),
		PriorityOrder:     mergeSlice(base.PriorityOrder, override.PriorityOrder),

		// Extends is always cleared after merge (profile is fully resolved)
		Extends: nil,
	}
}

// mergeString returns override if non-empty, otherwise base.
func mergeString(base, override string) string {
	if override != "" {
		return override
	}
	return base
}

// mergeSlice returns a copy of override if it is non-nil and non-empty,
// otherwise returns a copy of base. Copies are made at the boundary to
// prevent callers from sharing slice backing arrays.
func mergeSlice(base, override []string) []string {
	if len(override) > 0 {
		result := make([]string, len(override))
		copy(result, override)
		return result
	}
	if len(base) > 0 {
		result := make([]string, len(base))
		copy(result, base)
		return result
	}
	return nil
}
