package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/keycodec"
	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

var mergeTrackersCmd = &cobra.Command{
	Use:   "merge-trackers <primary> <secondary>",
	Short: "Merge a secondary tracker's cells into a primary tracker",
	Long: `Merge two tracker files sharing the same key space into one. Where both
trackers define a cell, the higher-priority relation wins (the same rule
aggregation uses across trackers); cells only one side defines are copied
as-is. Key definitions are taken from the primary tracker, falling back to
the secondary for any key the primary lacks.

The result is written to --output, or back over <primary> if --output is
not given.`,
	Args: cobra.ExactArgs(2),
	RunE: runMergeTrackers,
}

func init() {
	mergeTrackersCmd.Flags().StringP("output", "o", "", "path to write the merged tracker (default: overwrite <primary>)")
	rootCmd.AddCommand(mergeTrackersCmd)
}

func runMergeTrackers(cmd *cobra.Command, args []string) error {
	primaryPath, secondaryPath := args[0], args[1]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = primaryPath
	}

	primary, err := loadTrackerFile(primaryPath)
	if err != nil {
		return fmt.Errorf("loading primary tracker: %w", err)
	}
	secondary, err := loadTrackerFile(secondaryPath)
	if err != nil {
		return fmt.Errorf("loading secondary tracker: %w", err)
	}

	keySet := make(map[string]bool, len(primary.order)+len(secondary.order))
	for _, k := range primary.order {
		keySet[k] = true
	}
	for _, k := range secondary.order {
		keySet[k] = true
	}
	mergedKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		mergedKeys = append(mergedKeys, k)
	}
	mergedKeys = keycodec.SortHierarchical(mergedKeys)

	mergedDefs := make(map[string]string, len(mergedKeys))
	for _, k := range mergedKeys {
		if p, ok := primary.file.Defs[k]; ok {
			mergedDefs[k] = p
			continue
		}
		mergedDefs[k] = secondary.file.Defs[k]
	}

	table := resolvePriorityTable()
	n := len(mergedKeys)
	mergedRows := make(map[string]string, n)
	for i, rowKey := range mergedKeys {
		buf := make([]byte, n)
		for j, colKey := range mergedKeys {
			if i == j {
				buf[j] = byte(priority.Self)
				continue
			}
			buf[j] = byte(mergeCell(primary, secondary, rowKey, colKey, table))
		}
		mergedRows[rowKey] = string(buf)
	}

	outType := trackerTypeForPath(output)
	wi := tracker.WriteInput{
		Keys:         mergedKeys,
		Defs:         mergedDefs,
		LastKeyEdit:  fmt.Sprintf("Merged %s into %s", secondaryPath, primaryPath),
		LastGridEdit: "Grid content updated",
		Rows:         mergedRows,
	}
	if outType == tracker.Mini {
		wi.PreambleBefore = primary.file.PreambleBefore
		wi.PreambleAfter = primary.file.PreambleAfter
	}
	if err := tracker.Write(output, outType, wi, tracker.WriteOptions{}); err != nil {
		return fmt.Errorf("writing merged tracker: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %s + %s -> %s (%d keys)\n", primaryPath, secondaryPath, output, len(mergedKeys))
	return nil
}

// mergeCell resolves one output cell from the two source trackers, favoring
// the higher-priority side and falling back to a placeholder when neither
// tracker defines the pair.
func mergeCell(primary, secondary *loadedTracker, row, col string, table *priority.Table) priority.Char {
	p, pOK := cellIfPresent(primary, row, col)
	s, sOK := cellIfPresent(secondary, row, col)
	switch {
	case pOK && sOK:
		return table.MaxOf(p, s)
	case pOK:
		return p
	case sOK:
		return s
	default:
		return priority.Placeholder
	}
}

func cellIfPresent(lt *loadedTracker, row, col string) (priority.Char, bool) {
	if !lt.hasKey(row) || !lt.hasKey(col) {
		return 0, false
	}
	c, err := lt.get(row, col)
	if err != nil {
		return 0, false
	}
	return c, true
}
