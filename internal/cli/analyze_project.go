package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/pipeline"
)

var analyzeProjectCmd = &cobra.Command{
	Use:     "analyze-project",
	Aliases: []string{"analyze"},
	Short:   "Run a full key/migration/tracker update pass over the project",
	Long: `Walk the configured code and doc roots, (re)assign hierarchical keys,
build the migration map against the previous run, and update every mini
tracker, the doc tracker, and the main tracker in sequence.

This is the primary workflow command. Running 'trackgrid' with no
subcommand is equivalent to running 'trackgrid analyze-project'.`,
	RunE: runAnalyzeProject,
}

func init() {
	analyzeProjectCmd.Flags().Bool("json", false, "print the run report as JSON")
	rootCmd.AddCommand(analyzeProjectCmd)
}

func runAnalyzeProject(cmd *cobra.Command, _ []string) error {
	fv := GlobalFlags()

	rc, err := resolveActiveConfig(fv)
	if err != nil {
		return err
	}

	in, err := buildProjectInput(rc.Profile, fv.Dir)
	if err != nil {
		return err
	}

	report, err := pipeline.AnalyzeProject(cmd.Context(), in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding run report: %w", err)
		}
	} else {
		printRunReport(out, report)
	}

	if report.Status() == pipeline.StatusError {
		return &pipeline.TrackgridError{Code: int(report.ExitCode()), Message: "analyze-project completed with errors"}
	}
	return nil
}

func printRunReport(w interface{ Write([]byte) (int, error) }, report *pipeline.RunReport) {
	fmt.Fprintf(w, "Run %s: %d new key(s), %d removed key(s), %d module link(s)\n",
		report.ID, report.NewKeys, report.RemovedKeys, report.ModuleLinks)
	for _, tr := range report.Trackers {
		fmt.Fprintf(w, "  [%s] %-8s %s: %d cell(s) changed, keys_changed=%v, unstable=%d, filled=%d, row_errors=%d\n",
			statusGlyph(tr.Status), tr.Type, tr.Path, tr.CellsChanged, tr.KeysChanged, tr.UnstableSkips, tr.FilledSkips, tr.RowErrors)
		if tr.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", tr.Error)
		}
	}
	fmt.Fprintf(w, "Overall status: %s\n", report.Status())
}

func statusGlyph(s pipeline.RunStatus) string {
	switch s {
	case pipeline.StatusSuccess:
		return "ok"
	case pipeline.StatusWarning:
		return "warn"
	default:
		return "err"
	}
}
