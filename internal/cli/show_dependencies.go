package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/priority"
)

var showDependenciesCmd = &cobra.Command{
	Use:   "show-dependencies <tracker-file>",
	Short: "Print a tracker's non-placeholder relations as a styled list",
	Long: `List every resolved (non-placeholder) relation in a tracker file, one
line per directed pair, colorized by relation kind.

With --key, only relations touching that key (as source or target) are
shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runShowDependencies,
}

func init() {
	showDependenciesCmd.Flags().String("key", "", "restrict output to relations touching this key")
	rootCmd.AddCommand(showDependenciesCmd)
}

var (
	depSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	depArrowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	depPositive    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	depMutual      = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	depNone        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)
	depWeak        = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func runShowDependencies(cmd *cobra.Command, args []string) error {
	path := args[0]
	keyFilter, _ := cmd.Flags().GetString("key")

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}
	if keyFilter != "" && !lt.hasKey(keyFilter) {
		return fmt.Errorf("key %q not found in %s", keyFilter, path)
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, row := range lt.order {
		for j, col := range lt.order {
			if row == col {
				continue
			}
			c := priority.Char(lt.rows[row][j])
			if c == priority.Placeholder || c == priority.Self || c == priority.Empty {
				continue
			}
			if keyFilter != "" && row != keyFilter && col != keyFilter {
				continue
			}
			fmt.Fprintf(out, "  %s %s %s  %s\n",
				depSourceStyle.Render(row), depArrowStyle.Render("->"), depSourceStyle.Render(col),
				relationStyle(c).Render(fmt.Sprintf("%c (%s)", byte(c), charName(c))))
			shown++
		}
	}
	if shown == 0 {
		fmt.Fprintln(out, "No resolved relations found.")
	}
	return nil
}

func relationStyle(c priority.Char) lipgloss.Style {
	switch c {
	case priority.Mutual:
		return depMutual
	case priority.DependsOn, priority.DependedOnBy, priority.Documents:
		return depPositive
	case priority.VerifiedNone:
		return depNone
	case priority.SemanticWeak, priority.SemanticStrong:
		return depWeak
	default:
		return lipgloss.NewStyle()
	}
}
