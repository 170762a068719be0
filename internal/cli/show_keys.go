package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/keycodec"
)

var showKeysCmd = &cobra.Command{
	Use:   "show-keys <tracker-file>",
	Short: "Print a tracker's key definitions as a styled table",
	Long: `List every key defined in a tracker file alongside the path it names,
in hierarchical key order, with directories highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: runShowKeys,
}

func init() {
	rootCmd.AddCommand(showKeysCmd)
}

var (
	keyHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	keyColumnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dirPathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	filePathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

func runShowKeys(cmd *cobra.Command, args []string) error {
	path := args[0]

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, keyHeaderStyle.Render(fmt.Sprintf("Keys in %s (%d total)", path, len(lt.order))))
	fmt.Fprintln(out)

	width := 0
	for _, k := range lt.order {
		if len(k) > width {
			width = len(k)
		}
	}

	for _, k := range lt.order {
		defPath := lt.file.Defs[k]
		padded := k + spaces(width-len(k))
		pathStyle := filePathStyle
		if !keycodec.IsFileTier(k) {
			pathStyle = dirPathStyle
		}
		fmt.Fprintf(out, "  %s  %s\n", keyColumnStyle.Render(padded), pathStyle.Render(defPath))
	}
	return nil
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	return string(buf)
}
