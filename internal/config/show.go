package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ShowOptions controls the rendering of a resolved profile.
type ShowOptions struct {
	// Profile is the fully merged profile to display.
	Profile *Profile

	// Sources maps flat field names to their origin layer.
	Sources SourceMap

	// ProfileName is the name of the profile being displayed.
	ProfileName string

	// Chain is the inheritance chain in resolution order, e.g. ["ci", "default"].
	Chain []string
}

// ShowProfile renders a resolved profile as annotated TOML. Each field is
// printed with an inline comment indicating which configuration layer
// provided its value. The output is human-readable and approximately valid
// TOML (inline comments are not part of the TOML spec but are widely
// supported by editors and tooling).
//
// The Chain parameter should come from ProfileResolution.Chain.
func ShowProfile(opts ShowOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Resolved profile: %s\n", opts.ProfileName)
	if len(opts.Chain) > 1 {
		fmt.Fprintf(&b, "# Inheritance chain: %s\n", strings.Join(opts.Chain, " -> "))
	}
	fmt.Fprintf(&b, "\n")

	p := opts.Profile
	src := opts.Sources

	writeStringField(&b, "trackers_dir", p.TrackersDir, sourceLabel(src, "trackers_dir"))
	writeStringField(&b, "backups_dir", p.BackupsDir, sourceLabel(src, "backups_dir"))
	writeBoolField(&b, "force_apply", p.ForceApply, sourceLabel(src, "force_apply"))

	b.WriteString("\n")
	writeStringSliceField(&b, "code_roots", p.CodeRoots, sourceLabel(src, "code_roots"))
	writeStringSliceField(&b, "doc_roots", p.DocRoots, sourceLabel(src, "doc_roots"))
	writeStringSliceField(&b, "exclude_dirs", p.ExcludeDirs, sourceLabel(src, "exclude_dirs"))
	writeStringSliceField(&b, "exclude_paths", p.ExcludePaths, sourceLabel(src, "exclude_paths"))
	writeStringSliceField(&b, "exclude_extensions", p.ExcludeExtensions, sourceLabel(src, "exclude_extensions"))
	writeStringSliceField(&b, "exclude_patterns", p.ExcludePatterns, sourceLabel(src, "exclude_patterns"))
	writeStringSliceField(&b, "priority_order", p.PriorityOrder, sourceLabel(src, "priority_order"))

	return b.String()
}

// ShowProfileJSON serializes the resolved profile to indented JSON. It returns
// the JSON bytes as a string. An error is returned only if marshalling fails,
// which should not happen for well-formed Profile values.
func ShowProfileJSON(p *Profile) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile to JSON: %w", err)
	}
	return string(data), nil
}

// sourceLabel returns the Source.String() for a given flat key, defaulting to
// "default" when the key is absent from the SourceMap.
func sourceLabel(src SourceMap, key string) string {
	if s, ok := src[key]; ok {
		return s.String()
	}
	return "default"
}

// writeStringField writes a TOML string assignment with an inline source comment.
func writeStringField(b *strings.Builder, key, value, source string) {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	fmt.Fprintf(b, "%-20s = %-30s # %s\n", key, `"`+escaped+`"`, source)
}

// writeBoolField writes a TOML boolean assignment with an inline source comment.
func writeBoolField(b *strings.Builder, key string, value bool, source string) {
	boolStr := "false"
	if value {
		boolStr = "true"
	}
	fmt.Fprintf(b, "%-20s = %-30s # %s\n", key, boolStr, source)
}

// writeStringSliceField writes a multi-line TOML array with an inline source
// comment on the opening bracket line.
func writeStringSliceField(b *strings.Builder, key string, values []string, source string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%-20s = []%-27s # %s\n", key, "", source)
		return
	}

	fmt.Fprintf(b, "%-20s = [%-29s # %s\n", key, "", source)
	for _, v := range values {
		fmt.Fprintf(b, "  %q,\n", v)
	}
	b.WriteString("]\n")
}
