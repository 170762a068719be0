// Package keymanager walks a repository's root directories and assigns each
// tracked file or directory a hierarchical key. It also owns persistence of
// the two on-disk global key maps (current and old) that MigrationMap
// (internal/migration) consumes on the next run.
package keymanager

import "github.com/trackgrid/trackgrid/internal/keycodec"

// KeyInfo describes one tracked filesystem entry.
type KeyInfo struct {
	// KeyString is the hierarchical key, e.g. "1A2".
	KeyString string `json:"key_string"`
	// NormPath is the forward-slash path, relative to the scan root set,
	// that uniquely identifies this entry. Path is the identity; KeyString
	// is a label that may be reassigned across runs.
	NormPath string `json:"norm_path"`
	// ParentPath is the NormPath of the containing directory, or "" for a
	// configured root directory.
	ParentPath string `json:"parent_path,omitempty"`
	// IsDirectory is the authoritative directory/file distinction. Do not
	// infer it from KeyString's trailing run kind -- that is only a hint.
	IsDirectory bool `json:"is_directory"`
	// Tier is the depth of KeyString (number of digit/letter runs).
	Tier int `json:"tier"`
	// Index is this entry's 1-based position among its siblings at its tier.
	Index int `json:"index"`
}

// TierKind returns the keycodec.Kind of this entry's own tier (the kind of
// KeyString's final run).
func (k *KeyInfo) TierKind() keycodec.Kind {
	runs, err := keycodec.Parse(k.KeyString)
	if err != nil || len(runs) == 0 {
		return keycodec.Digit
	}
	return runs[len(runs)-1].Kind
}

// GlobalMap is path -> KeyInfo, the on-disk artifact KeyManager produces
// each run.
type GlobalMap map[string]*KeyInfo

// ByKey builds the reverse index key_string -> KeyInfo. A duplicate key
// string is returned as an error.
func (m GlobalMap) ByKey() (map[string]*KeyInfo, error) {
	out := make(map[string]*KeyInfo, len(m))
	for path, info := range m {
		if existing, ok := out[info.KeyString]; ok {
			return nil, &KeyGenerationError{Reason: "duplicate key_string " + info.KeyString + " for paths " + existing.NormPath + " and " + path}
		}
		out[info.KeyString] = info
	}
	return out, nil
}

// KeyGenerationError reports a duplicate norm_path or key_string within
// one global map. It is fatal for the run.
type KeyGenerationError struct {
	Reason string
}

func (e *KeyGenerationError) Error() string {
	return "keymanager: " + e.Reason
}
