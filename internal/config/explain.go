package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TraceStep records one evaluation step during file rule tracing.
type TraceStep struct {
	// StepNum is the 1-based step number in the evaluation sequence.
	StepNum int

	// Rule describes the rule being evaluated, e.g. "exclude_dirs".
	Rule string

	// Matched indicates whether the rule matched the file path.
	Matched bool

	// Outcome describes the result of this step, e.g. "continue", "EXCLUDED",
	// "module: modA", or "doc root".
	Outcome string
}

// ExplainResult holds the full explanation for a single file path showing
// how a profile would classify the file during a scan.
type ExplainResult struct {
	// FilePath is the file path being explained.
	FilePath string

	// ProfileName is the name of the profile being used for display.
	ProfileName string

	// Extends is the parent profile name, or empty if there is no parent.
	Extends string

	// Included indicates whether the file is scanned at all (true) or
	// excluded before classification (false).
	Included bool

	// ExcludedBy names the rule and the matching entry that caused exclusion
	// when Included is false, e.g. `exclude_dirs entry "node_modules"`.
	ExcludedBy string

	// IsDoc indicates the file falls under one of doc_roots rather than a
	// code module. Meaningless when Included is false.
	IsDoc bool

	// Module is the matched entry of code_roots that owns this path, or ""
	// when IsDoc is true or no root claims the path.
	Module string

	// Trace is the ordered list of evaluation steps.
	Trace []TraceStep
}

// ExplainFile evaluates how profile p would classify filePath during a
// dependency scan and returns a full ExplainResult describing the
// evaluation. profileName is used for display only; it does not affect the
// evaluation logic.
//
// The function simulates the orchestrator's exclusion and root-assignment
// pipeline in order:
//  1. exclude_dirs (matched by basename at any path segment)
//  2. exclude_paths (exact repo-relative path match)
//  3. exclude_extensions
//  4. exclude_patterns (doublestar glob)
//  5. doc_roots membership
//  6. code_roots membership (longest-prefix match)
func ExplainFile(filePath, profileName string, p *Profile) ExplainResult {
	result := ExplainResult{
		FilePath:    filePath,
		ProfileName: profileName,
	}

	if p.Extends != nil && *p.Extends != "" {
		result.Extends = *p.Extends
	}

	stepNum := 0
	nextStep := func() int {
		stepNum++
		return stepNum
	}

	// ── Step 1: exclude_dirs ────────────────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "exclude_dirs"}
		matched := ""
		for _, seg := range strings.Split(filepath.ToSlash(filePath), "/") {
			for _, dir := range p.ExcludeDirs {
				if seg == dir {
					matched = dir
					break
				}
			}
			if matched != "" {
				break
			}
		}
		if matched != "" {
			step.Matched = true
			step.Outcome = "EXCLUDED"
			result.Trace = append(result.Trace, step)
			result.ExcludedBy = fmt.Sprintf("exclude_dirs entry %q", matched)
			return result
		}
		step.Outcome = "no match -> continue"
		result.Trace = append(result.Trace, step)
	}

	// ── Step 2: exclude_paths ───────────────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "exclude_paths"}
		matched := ""
		for _, ep := range p.ExcludePaths {
			if filePath == ep {
				matched = ep
				break
			}
		}
		if matched != "" {
			step.Matched = true
			step.Outcome = "EXCLUDED"
			result.Trace = append(result.Trace, step)
			result.ExcludedBy = fmt.Sprintf("exclude_paths entry %q", matched)
			return result
		}
		step.Outcome = "no match -> continue"
		result.Trace = append(result.Trace, step)
	}

	// ── Step 3: exclude_extensions ──────────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "exclude_extensions"}
		ext := filepath.Ext(filePath)
		matched := ""
		for _, e := range p.ExcludeExtensions {
			if ext == e {
				matched = e
				break
			}
		}
		if matched != "" {
			step.Matched = true
			step.Outcome = "EXCLUDED"
			result.Trace = append(result.Trace, step)
			result.ExcludedBy = fmt.Sprintf("exclude_extensions entry %q", matched)
			return result
		}
		step.Outcome = "no match -> continue"
		result.Trace = append(result.Trace, step)
	}

	// ── Step 4: exclude_patterns ─────────────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "exclude_patterns"}
		matched := ""
		for _, pattern := range p.ExcludePatterns {
			if matchesGlob(pattern, filePath) {
				matched = pattern
				break
			}
		}
		if matched != "" {
			step.Matched = true
			step.Outcome = "EXCLUDED"
			result.Trace = append(result.Trace, step)
			result.ExcludedBy = fmt.Sprintf("exclude_patterns entry %q", matched)
			return result
		}
		step.Outcome = "no match -> continue"
		result.Trace = append(result.Trace, step)
	}

	result.Included = true

	// ── Step 5: doc_roots membership ────────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "doc_roots"}
		if root := longestPrefixMatch(filePath, p.DocRoots); root != "" {
			step.Matched = true
			step.Outcome = fmt.Sprintf("under doc root %q", root)
			result.Trace = append(result.Trace, step)
			result.IsDoc = true
			return result
		}
		step.Outcome = "no match -> continue"
		result.Trace = append(result.Trace, step)
	}

	// ── Step 6: code_roots membership ───────────────────────────────────────
	{
		step := TraceStep{StepNum: nextStep(), Rule: "code_roots"}
		if root := longestPrefixMatch(filePath, p.CodeRoots); root != "" {
			step.Matched = true
			step.Outcome = fmt.Sprintf("module %q", root)
			result.Trace = append(result.Trace, step)
			result.Module = root
			return result
		}
		step.Outcome = "no match; file belongs to no tracked root"
		result.Trace = append(result.Trace, step)
	}

	return result
}

// longestPrefixMatch returns the entry of roots that is a path-prefix of
// filePath and the longest such match, or "" if none match. A root matches
// when filePath equals the root or starts with root + "/".
func longestPrefixMatch(filePath string, roots []string) string {
	best := ""
	for _, root := range roots {
		if root == "" {
			continue
		}
		if filePath == root || strings.HasPrefix(filePath, root+"/") {
			if len(root) > len(best) {
				best = root
			}
		}
	}
	return best
}

// matchesAny reports whether path matches any of the given glob patterns.
// Pattern matching errors are silently ignored.
func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchesGlob(pattern, path) {
			return true
		}
	}
	return false
}

// matchesGlob reports whether filePath matches the given doublestar glob
// pattern. Match errors are silently ignored and treated as non-matches.
func matchesGlob(pattern, filePath string) bool {
	matched, err := doublestar.Match(pattern, filePath)
	if err != nil {
		return false
	}
	return matched
}
