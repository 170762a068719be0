package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCharCmd = &cobra.Command{
	Use:   "get-char <tracker-file> <row-key> <col-key>",
	Short: "Print the relation character at one grid cell",
	Long: `Read a single cell from a tracker file's dependency grid and print its
relation character along with a human-readable name.

<tracker-file> is the path to a mini, doc, or main tracker Markdown file.
<row-key> and <col-key> are hierarchical keys as they appear in that
tracker's key definitions.`,
	Args: cobra.ExactArgs(3),
	RunE: runGetChar,
}

func init() {
	rootCmd.AddCommand(getCharCmd)
}

func runGetChar(cmd *cobra.Command, args []string) error {
	path, row, col := args[0], args[1], args[2]

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}

	c, err := lt.get(row, col)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %c (%s)\n", row, col, byte(c), charName(c))
	return nil
}
