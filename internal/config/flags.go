package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// FlagValues collects all parsed global flag values from the CLI. This
// struct is populated by BindFlags and passed to downstream pipeline
// stages as overrides layered on top of the resolved Profile.
type FlagValues struct {
	Dir         string
	Profile     string
	ProfileFile string
	ForceApply  bool
	Verbose     bool
	Quiet       bool
	Yes         bool
}

// BindFlags registers all global persistent flags on the given Cobra command
// and returns a FlagValues pointer that will be populated when the command is
// executed. Callers should access the returned struct after flag parsing.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.Dir, "dir", "d", ".", "target project directory")
	pf.StringVarP(&fv.Profile, "profile", "p", "default", "named profile to activate")
	pf.StringVar(&fv.ProfileFile, "profile-file", "", "standalone profile file (overrides repo trackgrid.toml)")
	pf.BoolVar(&fv.ForceApply, "force-apply", false, "allow suggestions to overwrite verified-none cells")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVar(&fv.Yes, "yes", false, "skip confirmation prompts")

	return fv
}

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion. It also applies environment variable fallbacks. Call this from
// PersistentPreRunE after Cobra has parsed the flags.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	applyEnvOverrides(fv, cmd)

	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	info, err := os.Stat(fv.Dir)
	if err != nil {
		return fmt.Errorf("--dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--dir: %s is not a directory", fv.Dir)
	}

	return nil
}

// applyEnvOverrides applies environment variable fallbacks for flags that
// were not explicitly set on the command line. The prefix is TRACKGRID_.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	if v := os.Getenv(EnvProfile); v != "" && !cmd.Flags().Changed("profile") {
		fv.Profile = v
	}
	if os.Getenv(EnvForceApply) != "" && !cmd.Flags().Changed("force-apply") {
		if b, err := parseBoolEnv(os.Getenv(EnvForceApply)); err == nil {
			fv.ForceApply = b
		}
	}
}

func parseBoolEnv(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", v)
	}
}
