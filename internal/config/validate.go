package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// validRelChars lists the only accepted relationship characters for
// Profile.PriorityOrder. Each entry must appear at most once in the list.
var validRelChars = map[string]bool{
	"n": true, "x": true, "<": true, ">": true,
	"S": true, "s": true, "d": true, "p": true,
}

// maxInheritanceWarningDepth is the chain length above which validation emits
// a warning about deep inheritance (mirrors the resolver constant).
const maxInheritanceWarningDepth = 3

// Validate inspects every profile in cfg and returns a slice of
// ValidationErrors describing hard errors and warnings found in the
// configuration. It does not stop at the first error; all profiles are
// checked and all findings are accumulated before returning.
//
// The returned slice is nil when no issues are found. Each element carries
// a Severity field of either "error" or "warning".
//
// Validate does not modify cfg.
func Validate(cfg *Config) []ValidationError {
	if cfg == nil {
		return nil
	}

	var results []ValidationError

	for name, profile := range cfg.Profile {
		if profile == nil {
			continue
		}
		errs := validateProfile(name, profile, cfg.Profile)
		results = append(results, errs...)
	}

	if len(results) > 0 {
		slog.Debug("config validation complete",
			"total_issues", len(results),
		)
	}

	return results
}

// validateProfile checks a single named profile and returns all validation
// errors and warnings for that profile.
func validateProfile(name string, p *Profile, allProfiles map[string]*Profile) []ValidationError {
	var results []ValidationError

	field := func(f string) string {
		return fmt.Sprintf("profile.%s.%s", name, f)
	}

	// ── Hard errors ────────────────────────────────────────────────────────

	// priority_order: each entry must be a known relationship character, and
	// no entry may repeat.
	seenChars := make(map[string]bool, len(p.PriorityOrder))
	for i, c := range p.PriorityOrder {
		if !validRelChars[c] {
			results = append(results, ValidationError{
				Severity: "error",
				Field:    fmt.Sprintf("%s[%d]", field("priority_order"), i),
				Message:  fmt.Sprintf("priority_order entry %q is not a valid relationship character", c),
				Suggest:  "Valid characters: n, x, <, >, S, s, d, p",
			})
			continue
		}
		if seenChars[c] {
			results = append(results, ValidationError{
				Severity: "error",
				Field:    fmt.Sprintf("%s[%d]", field("priority_order"), i),
				Message:  fmt.Sprintf("priority_order entry %q is duplicated", c),
				Suggest:  "Remove the duplicate entry",
			})
		}
		seenChars[c] = true
	}

	// glob pattern validity
	results = append(results, validateGlobPatterns(name, p)...)

	// exclude_extensions entries must start with a dot.
	for i, ext := range p.ExcludeExtensions {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			results = append(results, ValidationError{
				Severity: "error",
				Field:    fmt.Sprintf("%s[%d]", field("exclude_extensions"), i),
				Message:  fmt.Sprintf("exclude_extensions entry %q is missing the leading dot", ext),
				Suggest:  fmt.Sprintf("Use %q instead of %q", "."+ext, ext),
			})
		}
	}

	// code_roots and doc_roots must not overlap.
	results = append(results, validateRootOverlap(name, p)...)

	// circular inheritance
	if p.Extends != nil && *p.Extends != "" {
		if _, err := ResolveProfile(name, allProfiles); err != nil {
			if strings.Contains(err.Error(), "circular") {
				results = append(results, ValidationError{
					Severity: "error",
					Field:    field("extends"),
					Message:  err.Error(),
					Suggest:  "Remove or restructure the extends chain to eliminate the cycle",
				})
			} else {
				results = append(results, ValidationError{
					Severity: "error",
					Field:    field("extends"),
					Message:  fmt.Sprintf("extends %q: %s", *p.Extends, err.Error()),
					Suggest:  fmt.Sprintf("Define a profile named %q or update the extends value", *p.Extends),
				})
			}
		}
	}

	// ── Warnings ───────────────────────────────────────────────────────────

	// exclude_paths entries that also appear verbatim in code_roots/doc_roots.
	results = append(results, warnExcludedRoots(name, p)...)

	// trackers_dir nested under one of code_roots/doc_roots.
	results = append(results, warnTrackersDirUnderRoot(name, p)...)

	// Inheritance depth > 3.
	results = append(results, warnDeepInheritance(name, p, allProfiles)...)

	// trackers_dir / backups_dir outside the current directory tree.
	for _, f := range []struct {
		name  string
		value string
	}{
		{"trackers_dir", p.TrackersDir},
		{"backups_dir", p.BackupsDir},
	} {
		if f.value == "" {
			continue
		}
		if strings.HasPrefix(f.value, "../") || filepath.IsAbs(f.value) {
			results = append(results, ValidationError{
				Severity: "warning",
				Field:    field(f.name),
				Message:  fmt.Sprintf("%s %q is outside the project directory", f.name, f.value),
				Suggest:  "Use a relative path within the project directory, e.g. \".trackgrid\"",
			})
		}
	}

	return results
}

// validateGlobPatterns validates all glob pattern lists in the profile and
// returns errors for any invalid patterns.
func validateGlobPatterns(profileName string, p *Profile) []ValidationError {
	var results []ValidationError

	field := func(f string) string {
		return fmt.Sprintf("profile.%s.%s", profileName, f)
	}

	type patternList struct {
		fieldPath string
		patterns  []string
	}

	lists := []patternList{
		{field("exclude_patterns"), p.ExcludePatterns},
	}

	for _, list := range lists {
		for i, pattern := range list.patterns {
			if err := validateGlobPattern(pattern); err != nil {
				results = append(results, ValidationError{
					Severity: "error",
					Field:    fmt.Sprintf("%s[%d]", list.fieldPath, i),
					Message:  fmt.Sprintf("invalid glob pattern %q: %s", pattern, err.Error()),
					Suggest:  "Use doublestar glob syntax, e.g. \"**/*.go\" or \"src/**\"",
				})
			}
		}
	}

	return results
}

// validateGlobPattern checks whether pattern is syntactically valid according
// to the doublestar library. It uses doublestar.ValidatePattern which returns
// false for malformed patterns (e.g. unclosed character classes or alternations).
func validateGlobPattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("syntax error in pattern %q", pattern)
	}
	return nil
}

// validateRootOverlap returns errors for any path that appears in both
// code_roots and doc_roots, which would make its module/doc-tracker
// assignment ambiguous.
func validateRootOverlap(profileName string, p *Profile) []ValidationError {
	if len(p.CodeRoots) == 0 || len(p.DocRoots) == 0 {
		return nil
	}

	codeSet := make(map[string]bool, len(p.CodeRoots))
	for _, c := range p.CodeRoots {
		codeSet[c] = true
	}

	var results []ValidationError
	for i, d := range p.DocRoots {
		if codeSet[d] {
			results = append(results, ValidationError{
				Severity: "error",
				Field:    fmt.Sprintf("profile.%s.doc_roots[%d]", profileName, i),
				Message:  fmt.Sprintf("%q is listed in both code_roots and doc_roots", d),
				Suggest:  "Remove the path from one of the two lists",
			})
		}
	}
	return results
}

// warnExcludedRoots returns warnings for exclude_paths entries that exactly
// match a code_roots or doc_roots entry, which disables that root entirely.
func warnExcludedRoots(profileName string, p *Profile) []ValidationError {
	if len(p.ExcludePaths) == 0 {
		return nil
	}

	roots := make(map[string]bool, len(p.CodeRoots)+len(p.DocRoots))
	for _, c := range p.CodeRoots {
		roots[c] = true
	}
	for _, d := range p.DocRoots {
		roots[d] = true
	}

	var results []ValidationError
	for i, ep := range p.ExcludePaths {
		if roots[ep] {
			results = append(results, ValidationError{
				Severity: "warning",
				Field:    fmt.Sprintf("profile.%s.exclude_paths[%d]", profileName, i),
				Message:  fmt.Sprintf("exclude_paths entry %q matches a tracked root; that root will be skipped entirely", ep),
				Suggest:  fmt.Sprintf("Remove %q from exclude_paths or from code_roots/doc_roots", ep),
			})
		}
	}
	return results
}

// warnTrackersDirUnderRoot returns a warning when trackers_dir sits inside
// one of the tracked code/doc roots, which would feed tracker state back
// into the scan it describes.
func warnTrackersDirUnderRoot(profileName string, p *Profile) []ValidationError {
	if p.TrackersDir == "" {
		return nil
	}

	roots := append(append([]string{}, p.CodeRoots...), p.DocRoots...)
	for _, root := range roots {
		rel, err := filepath.Rel(root, p.TrackersDir)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && rel != "") {
			return []ValidationError{
				{
					Severity: "warning",
					Field:    fmt.Sprintf("profile.%s.trackers_dir", profileName),
					Message:  fmt.Sprintf("trackers_dir %q is nested under tracked root %q", p.TrackersDir, root),
					Suggest:  "Move trackers_dir outside of code_roots/doc_roots, e.g. \".trackgrid\"",
				},
			}
		}
	}
	return nil
}

// warnDeepInheritance returns a warning when the inheritance chain for the
// profile exceeds maxInheritanceWarningDepth levels.
func warnDeepInheritance(profileName string, p *Profile, allProfiles map[string]*Profile) []ValidationError {
	if p.Extends == nil || *p.Extends == "" {
		return nil
	}

	resolution, err := ResolveProfile(profileName, allProfiles)
	if err != nil {
		// Errors are already reported elsewhere (e.g. circular inheritance).
		return nil
	}

	depth := len(resolution.Chain)
	if depth <= maxInheritanceWarningDepth {
		return nil
	}

	return []ValidationError{
		{
			Severity: "warning",
			Field:    fmt.Sprintf("profile.%s.extends", profileName),
			Message: fmt.Sprintf(
				"inheritance chain is %d levels deep (%s)",
				depth,
				strings.Join(resolution.Chain, " -> "),
			),
			Suggest: "Flatten the inheritance chain to 3 levels or fewer for maintainability",
		},
	}
}

// Lint runs all Validate checks and additionally performs deeper static
// analysis of the configuration. It returns a slice of LintResult values that
// embed ValidationError for unified severity/field/message access.
//
// Lint-only checks include:
//   - Redundant exclude_patterns: a pattern that is a literal duplicate of
//     another entry in the same list.
//   - No-extension patterns: exclude_patterns entries that have no
//     file-extension suffix, meaning they match any file name regardless
//     of type.
//   - Complexity score: profiles with many non-empty fields set are flagged
//     to encourage splitting into focused sub-profiles.
//
// The returned slice is nil when no issues are found.
func Lint(cfg *Config) []LintResult {
	if cfg == nil {
		return nil
	}

	var results []LintResult

	// Include all Validate results as LintResults (Code left empty for these).
	for _, ve := range Validate(cfg) {
		results = append(results, LintResult{ValidationError: ve})
	}

	// Perform deeper lint-only analysis per profile.
	for name, profile := range cfg.Profile {
		if profile == nil {
			continue
		}
		results = append(results, lintProfile(name, profile)...)
	}

	return results
}

// lintProfile performs the deeper lint-only analysis for a single profile.
func lintProfile(profileName string, p *Profile) []LintResult {
	var results []LintResult

	results = append(results, lintDuplicatePatterns(profileName, p)...)
	results = append(results, lintNoExtPatterns(profileName, p)...)
	results = append(results, lintComplexity(profileName, p)...)

	return results
}

// lintDuplicatePatterns detects exact-string duplicates within
// exclude_patterns, which are always redundant.
func lintDuplicatePatterns(profileName string, p *Profile) []LintResult {
	seen := make(map[string]int)
	var results []LintResult

	for i, pattern := range p.ExcludePatterns {
		if firstIdx, ok := seen[pattern]; ok {
			results = append(results, LintResult{
				ValidationError: ValidationError{
					Severity: "warning",
					Field:    fmt.Sprintf("profile.%s.exclude_patterns[%d]", profileName, i),
					Message:  fmt.Sprintf("pattern %q duplicates exclude_patterns[%d]", pattern, firstIdx),
					Suggest:  "Remove the duplicate pattern",
				},
				Code: "duplicate-pattern",
			})
			continue
		}
		seen[pattern] = i
	}

	return results
}

// lintNoExtPatterns detects exclude_patterns entries that do not contain any
// file-extension-like suffix (no dot after the last path separator or
// wildcard). Such patterns match files of any type, which may be unintentional.
func lintNoExtPatterns(profileName string, p *Profile) []LintResult {
	var results []LintResult

	for i, pattern := range p.ExcludePatterns {
		if !patternHasExtension(pattern) {
			results = append(results, LintResult{
				ValidationError: ValidationError{
					Severity: "warning",
					Field:    fmt.Sprintf("profile.%s.exclude_patterns[%d]", profileName, i),
					Message:  fmt.Sprintf("pattern %q has no file extension; it will match files of any type", pattern),
					Suggest:  "Add an extension suffix (e.g. \"**/*.go\") unless matching all file types is intentional",
				},
				Code: "no-ext-match",
			})
		}
	}

	return results
}

// patternHasExtension reports whether pattern contains a dot after the last
// path separator or wildcard segment, indicating it matches a specific file
// extension. This is a heuristic, not a precise check.
func patternHasExtension(pattern string) bool {
	// Find the last component after the final '/' or '**'.
	last := pattern
	if idx := strings.LastIndex(pattern, "/"); idx >= 0 {
		last = pattern[idx+1:]
	}
	// The last segment should contain a dot for it to have an extension.
	// Ignore patterns where the dot is only at the start (hidden files like ".git").
	dotIdx := strings.LastIndex(last, ".")
	if dotIdx < 0 {
		return false
	}
	// A leading dot alone (e.g. ".git") does not constitute a file extension.
	if dotIdx == 0 && !strings.Contains(last[1:], ".") {
		return false
	}
	return true
}

// complexityThreshold is the number of non-empty fields above which a
// profile is considered overly complex.
const complexityThreshold = 8

// lintComplexity computes the number of non-zero/non-empty fields in a profile
// and emits a warning when the count exceeds complexityThreshold.
func lintComplexity(profileName string, p *Profile) []LintResult {
	score := profileComplexityScore(p)
	if score <= complexityThreshold {
		return nil
	}

	return []LintResult{
		{
			ValidationError: ValidationError{
				Severity: "warning",
				Field:    fmt.Sprintf("profile.%s", profileName),
				Message:  fmt.Sprintf("profile has a complexity score of %d (threshold: %d)", score, complexityThreshold),
				Suggest:  "Consider splitting into multiple profiles connected via extends to improve maintainability",
			},
			Code: "complexity",
		},
	}
}

// profileComplexityScore counts the number of non-empty / non-zero fields in
// the profile. Scalar fields each count as 1; each non-empty slice counts as 1.
func profileComplexityScore(p *Profile) int {
	score := 0

	if p.TrackersDir != "" {
		score++
	}
	if p.BackupsDir != "" {
		score++
	}
	if p.ForceApply {
		score++
	}
	if len(p.CodeRoots) > 0 {
		score++
	}
	if len(p.DocRoots) > 0 {
		score++
	}
	if len(p.ExcludeDirs) > 0 {
		score++
	}
	if len(p.ExcludePaths) > 0 {
		score++
	}
	if len(p.ExcludeExtensions) > 0 {
		score++
	}
	if len(p.ExcludePatterns) > 0 {
		score++
	}
	if len(p.PriorityOrder) > 0 {
		score++
	}

	return score
}
