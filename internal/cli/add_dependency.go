package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

var addDependencyCmd = &cobra.Command{
	Use:   "add-dependency <tracker-file> <source-key> <target:char>...",
	Short: "Record one or more dependencies from a source key",
	Long: `Set the relation from <source-key> to each <target-key> in
<target:char> (e.g. "1A2:<") to the given relation character, applying the
same reciprocity and priority rules analyze-project uses: a directional
character's reverse cell is filled or raised to match, and a weaker
proposed character never silently overwrites a stronger existing one unless
--force-apply is given.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runAddDependency,
}

func init() {
	rootCmd.AddCommand(addDependencyCmd)
}

func runAddDependency(cmd *cobra.Command, args []string) error {
	path, source := args[0], args[1]
	pairs := args[2:]

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}
	if !lt.hasKey(source) {
		return fmt.Errorf("source key %q not found in %s", source, path)
	}

	type target struct {
		key  string
		char priority.Char
	}
	targets := make([]target, 0, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, ":")
		if i < 0 || i == len(p)-1 {
			return fmt.Errorf("%q is not a target:char pair", p)
		}
		key, charStr := p[:i], p[i+1:]
		if len(charStr) != 1 {
			return fmt.Errorf("%q: char must be a single character", p)
		}
		c := priority.Char(charStr[0])
		if !priority.Valid(c) || c == priority.Self {
			return fmt.Errorf("%q: %q is not a valid relation character", p, charStr)
		}
		if !lt.hasKey(key) {
			return fmt.Errorf("target key %q not found in %s", key, path)
		}
		if key == source {
			return fmt.Errorf("target key %q is the same as the source key", key)
		}
		targets = append(targets, target{key: key, char: c})
	}

	forceApply := false
	if fv := GlobalFlags(); fv != nil {
		forceApply = fv.ForceApply
	}
	table := resolvePriorityTable()

	changed := 0
	for _, t := range targets {
		n, err := applyDependency(lt, table, source, t.key, t.char, forceApply)
		if err != nil {
			return err
		}
		changed += n
	}

	lastGridEdit := "Grid content updated"
	if changed == 0 {
		lastGridEdit = lt.file.LastGridEdit
	}
	if err := lt.save(lt.file.LastKeyEdit, lastGridEdit, tracker.WriteOptions{}); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cell(s) changed\n", source, changed)
	return nil
}

// applyDependency applies one suggested relation from src to tgt, mirroring
// the priority/reciprocity rule TrackerUpdater's suggestion-application step
// uses: the forward cell is set if it is weaker than the proposal (or
// always, under --force-apply), and a directional character additionally
// fills or raises its reciprocal cell.
func applyDependency(lt *loadedTracker, table *priority.Table, src, tgt string, c priority.Char, forceApply bool) (int, error) {
	changed := 0

	current, err := lt.get(src, tgt)
	if err != nil {
		return 0, err
	}
	switch {
	case forceApply && c != current:
		if err := lt.set(src, tgt, c); err != nil {
			return 0, err
		}
		changed++
	case current == priority.Placeholder:
		if err := lt.set(src, tgt, c); err != nil {
			return 0, err
		}
		changed++
	case current != priority.Self && current != priority.VerifiedNone && current != c && table.Higher(c, current):
		if err := lt.set(src, tgt, c); err != nil {
			return 0, err
		}
		changed++
	}

	if !priority.Directional(c) {
		return changed, nil
	}
	forward, err := lt.get(src, tgt)
	if err != nil || forward != c {
		return changed, nil
	}
	reverse, err := lt.get(tgt, src)
	if err != nil {
		return changed, nil
	}
	if reverse == c {
		if err := lt.set(src, tgt, priority.Mutual); err != nil {
			return 0, err
		}
		if err := lt.set(tgt, src, priority.Mutual); err != nil {
			return 0, err
		}
		changed++
		return changed, nil
	}

	recip := priority.Reverse(c)
	switch {
	case forceApply && recip != reverse:
		if err := lt.set(tgt, src, recip); err != nil {
			return 0, err
		}
		changed++
	case reverse == priority.Placeholder:
		if err := lt.set(tgt, src, recip); err != nil {
			return 0, err
		}
		changed++
	case reverse != priority.Self && reverse != priority.VerifiedNone && reverse != recip && table.Higher(recip, reverse):
		if err := lt.set(tgt, src, recip); err != nil {
			return 0, err
		}
		changed++
	}
	return changed, nil
}
