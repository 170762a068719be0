package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

var setCharCmd = &cobra.Command{
	Use:   "set-char <tracker-file> <row-key> <col-key> <char>",
	Short: "Overwrite one grid cell with a relation character",
	Long: `Directly overwrite a single cell in a tracker file's dependency grid,
bypassing the reciprocity and priority rules add-dependency applies. Use
this for a raw correction; use add-dependency to record a new dependency
the normal way.

The diagonal (row == col) cannot be set: it always holds the self marker.`,
	Args: cobra.ExactArgs(4),
	RunE: runSetChar,
}

func init() {
	rootCmd.AddCommand(setCharCmd)
}

func runSetChar(cmd *cobra.Command, args []string) error {
	path, row, col, charArg := args[0], args[1], args[2], args[3]

	if row == col {
		return fmt.Errorf("row and column keys are the same (%s): the diagonal cannot be edited", row)
	}
	if len(charArg) != 1 {
		return fmt.Errorf("char must be a single character, got %q", charArg)
	}
	c := priority.Char(charArg[0])
	if !priority.Valid(c) || c == priority.Self {
		return fmt.Errorf("%q is not a valid relation character", charArg)
	}

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}

	prev, err := lt.get(row, col)
	if err != nil {
		return err
	}
	if err := lt.set(row, col, c); err != nil {
		return err
	}

	lastGridEdit := fmt.Sprintf("Set %s -> %s to %c", row, col, byte(c))
	if err := lt.save(lt.file.LastKeyEdit, lastGridEdit, tracker.WriteOptions{}); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %c (%s) -> %c (%s)\n",
		row, col, byte(prev), charName(prev), byte(c), charName(c))
	return nil
}
