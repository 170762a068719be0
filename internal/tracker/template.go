package tracker

import "fmt"

// Template returns the preamble seeded into a brand-new mini tracker, the
// first time TrackerUpdater writes one for a module that had no prior file.
// It carries a short human-facing header; the preservation markers wrap the
// managed block that Write regenerates on every run.
func Template(modulePath string) string {
	return fmt.Sprintf("# Dependency Tracker: %s\n\nThis file is maintained automatically. Edit only outside the preserved block below; anything inside it is regenerated on every run.\n\n", modulePath)
}
