package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/tracker"
)

var removeKeyCmd = &cobra.Command{
	Use:   "remove-key <tracker-file> <key>[,<key>...]",
	Short: "Drop one or more keys and their grid row/column from a tracker",
	Long: `Remove the given comma-separated keys from a tracker file: their key
definitions disappear and their row and column are dropped from every
remaining row.

remove-key does not renumber the surviving keys -- key assignment is
KeyManager's job, and the next analyze-project run renumbers from the
filesystem as usual. remove-key only edits the one tracker file given; it
does not touch the global key map.`,
	Args: cobra.ExactArgs(2),
	RunE: runRemoveKey,
}

func init() {
	rootCmd.AddCommand(removeKeyCmd)
}

func runRemoveKey(cmd *cobra.Command, args []string) error {
	path := args[0]
	keys := strings.Split(args[1], ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}

	remove := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !lt.hasKey(k) {
			return fmt.Errorf("key %q not found in %s", k, path)
		}
		remove[k] = true
	}

	newOrder := make([]string, 0, len(lt.order))
	keepIdx := make([]int, 0, len(lt.order))
	for i, k := range lt.order {
		if remove[k] {
			continue
		}
		newOrder = append(newOrder, k)
		keepIdx = append(keepIdx, i)
	}

	newDefs := make(map[string]string, len(newOrder))
	newRows := make(map[string]string, len(newOrder))
	for _, k := range newOrder {
		newDefs[k] = lt.file.Defs[k]
		old := lt.rows[k]
		buf := make([]byte, len(keepIdx))
		for j, oi := range keepIdx {
			buf[j] = old[oi]
		}
		newRows[k] = string(buf)
	}

	lt.file.Defs = newDefs
	lt.order = newOrder
	lt.rows = newRows

	lastKeyEdit := "Keys removed " + strings.Join(keys, ", ")
	if err := lt.save(lastKeyEdit, "Grid structure updated", tracker.WriteOptions{}); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d key(s) from %s\n", len(remove), path)
	return nil
}
