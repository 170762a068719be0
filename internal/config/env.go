package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable name constants for TRACKGRID_ prefixed overrides.
const (
	// EnvProfile selects the named profile to activate.
	EnvProfile = "TRACKGRID_PROFILE"
	// EnvCodeRoots overrides code_roots (comma-separated).
	EnvCodeRoots = "TRACKGRID_CODE_ROOTS"
	// EnvDocRoots overrides doc_roots (comma-separated).
	EnvDocRoots = "TRACKGRID_DOC_ROOTS"
	// EnvTrackersDir overrides trackers_dir.
	EnvTrackersDir = "TRACKGRID_TRACKERS_DIR"
	// EnvBackupsDir overrides backups_dir.
	EnvBackupsDir = "TRACKGRID_BACKUPS_DIR"
	// EnvPriorityOrder overrides priority_order (comma-separated).
	EnvPriorityOrder = "TRACKGRID_PRIORITY_ORDER"
	// EnvForceApply overrides the force_apply flag.
	EnvForceApply = "TRACKGRID_FORCE_APPLY"
	// EnvLogFormat overrides the log output format (not a profile field).
	EnvLogFormat = "TRACKGRID_LOG_FORMAT"
)

// buildEnvMap reads TRACKGRID_* environment variables and returns a flat map
// suitable for use with a koanf confmap provider. Only non-empty env vars
// that parse successfully are included. Invalid boolean values are silently
// skipped so that a bad env var does not block the entire resolution
// pipeline.
func buildEnvMap() map[string]any {
	m := make(map[string]any)

	if v := os.Getenv(EnvCodeRoots); v != "" {
		m["code_roots"] = splitEnvList(v)
	}
	if v := os.Getenv(EnvDocRoots); v != "" {
		m["doc_roots"] = splitEnvList(v)
	}
	if v := os.Getenv(EnvTrackersDir); v != "" {
		m["trackers_dir"] = v
	}
	if v := os.Getenv(EnvBackupsDir); v != "" {
		m["backups_dir"] = v
	}
	if v := os.Getenv(EnvPriorityOrder); v != "" {
		m["priority_order"] = splitEnvList(v)
	}
	if v := os.Getenv(EnvForceApply); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m["force_apply"] = b
		}
	}

	return m
}

// splitEnvList splits a comma-separated env var value into trimmed, non-empty
// entries.
func splitEnvList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
