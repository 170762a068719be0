package config

// DefaultProfile returns a new Profile populated with the built-in defaults.
// This profile is used as the base when no trackgrid.toml is present or when
// a named profile omits fields.
//
// Callers receive a fresh copy each time; mutating the returned value does
// not affect subsequent calls.
func DefaultProfile() *Profile {
	return &Profile{
		CodeRoots: []string{"src", "internal", "cmd"},
		DocRoots:  []string{"docs"},
		ExcludeDirs: []string{
			"node_modules",
			".git",
			"vendor",
			"dist",
		},
		ExcludePaths:      []string{},
		ExcludeExtensions: []string{".pyc", ".lock"},
		ExcludePatterns:   []string{"**/*_generated.go"},
		TrackersDir:       ".trackgrid",
		BackupsDir:        ".trackgrid/backups",
		PriorityOrder:     []string{"p", "s", "S", "n", "d", "<", ">", "x"},
		ForceApply:        false,
	}
}
