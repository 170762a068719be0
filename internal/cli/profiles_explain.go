package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/trackgrid/trackgrid/internal/config"
	"github.com/spf13/cobra"
)

// profilesExplainCmd shows how the active profile classifies a specific file.
var profilesExplainCmd = &cobra.Command{
	Use:   "explain <filepath>",
	Short: "Show how the active profile classifies a file",
	Long: `Simulate the orchestrator's exclusion and root-assignment pipeline for a
given file path and print the full rule trace: which exclude_dirs,
exclude_paths, exclude_extensions, and exclude_patterns entries apply, and
whether the surviving path falls under a doc root or a code module.

The command is informational only -- it does not touch any tracker files.

Pass a glob pattern (e.g. "src/**/*.ts") to explain multiple matching files.
Use --profile to explain against a specific named profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesExplain,
	ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveDefault
	},
}

func init() {
	profilesExplainCmd.Flags().String("profile", "", "profile name to explain against")
	profilesCmd.AddCommand(profilesExplainCmd)
}

// runProfilesExplain implements `trackgrid profiles explain <filepath>`.
func runProfilesExplain(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	profileFlag, _ := cmd.Flags().GetString("profile")
	out := cmd.OutOrStdout()

	resolveOpts := config.ResolveOptions{TargetDir: "."}
	if profileFlag != "" {
		resolveOpts.ProfileName = profileFlag
	}
	resolved, err := config.Resolve(resolveOpts)
	if err != nil {
		return fmt.Errorf("resolving profile: %w", err)
	}

	profileName := resolved.ProfileName

	isGlob := strings.ContainsAny(filePath, "*?[{")

	if isGlob {
		matches, err := doublestar.Glob(os.DirFS("."), filePath, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("expanding glob %q: %w", filePath, err)
		}
		if len(matches) == 0 {
			fmt.Fprintf(out, "No files matched glob pattern %q\n", filePath)
			return nil
		}
		for i, match := range matches {
			if i > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, strings.Repeat("-", 60))
				fmt.Fprintln(out)
			}
			result := config.ExplainFile(match, profileName, resolved.Profile)
			printExplainResult(out, result)
		}
		return nil
	}

	result := config.ExplainFile(filePath, profileName, resolved.Profile)
	printExplainResult(out, result)
	return nil
}

// printExplainResult formats and writes a single ExplainResult to w.
func printExplainResult(w io.Writer, result config.ExplainResult) {
	fmt.Fprintf(w, "Explaining: %s\n", result.FilePath)

	if result.Extends != "" {
		fmt.Fprintf(w, "Profile: %s (extends: %s)\n", result.ProfileName, result.Extends)
	} else {
		fmt.Fprintf(w, "Profile: %s\n", result.ProfileName)
	}
	fmt.Fprintln(w)

	if result.Included {
		fmt.Fprintf(w, "  Status:  INCLUDED\n")
		switch {
		case result.IsDoc:
			fmt.Fprintf(w, "  Kind:    documentation\n")
		case result.Module != "":
			fmt.Fprintf(w, "  Kind:    code\n")
			fmt.Fprintf(w, "  Module:  %s\n", result.Module)
		default:
			fmt.Fprintf(w, "  Kind:    untracked (matches no code_roots or doc_roots entry)\n")
		}
	} else {
		fmt.Fprintf(w, "  Status:  EXCLUDED\n")
		fmt.Fprintf(w, "  Reason:  %s\n", result.ExcludedBy)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rule trace:")
	for _, step := range result.Trace {
		fmt.Fprintf(w, "  %d. %s: %s\n", step.StepNum, step.Rule, step.Outcome)
	}
}
