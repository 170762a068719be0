package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestExplain builds an isolated command tree containing only
// `trackgrid profiles explain` so each test gets a fresh command state.
func newTestExplain() *cobra.Command {
	root := &cobra.Command{
		Use:           "trackgrid",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	pCmd := &cobra.Command{Use: "profiles"}
	explainCmd := &cobra.Command{
		Use:  "explain <filepath>",
		Args: cobra.ExactArgs(1),
		RunE: runProfilesExplain,
	}
	explainCmd.Flags().String("profile", "", "profile name")
	pCmd.AddCommand(explainCmd)
	root.AddCommand(pCmd)
	return root
}

// ── profiles explain ──────────────────────────────────────────────────────

func TestProfilesExplain_IncludedCodeFile(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "src/main.go"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "INCLUDED")
	assert.Contains(t, output, "Module:  src")
}

func TestProfilesExplain_ExcludedByDir(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	// node_modules is in the built-in default exclude_dirs list.
	root.SetArgs([]string{"profiles", "explain", "node_modules/pkg/index.js"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "EXCLUDED")
	assert.Contains(t, output, "exclude_dirs")
}

func TestProfilesExplain_DocRootFile(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "docs/guide.md"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "INCLUDED")
	assert.Contains(t, output, "documentation")
}

func TestProfilesExplain_ProfileFlagUsed(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "--profile", "default", "go.mod"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Profile: default")
}

func TestProfilesExplain_OutputContainsRuleTrace(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "internal/config/explain.go"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Rule trace:")
}

func TestProfilesExplain_ExplainingLineShown(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "cmd/trackgrid/main.go"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Explaining: cmd/trackgrid/main.go")
}

func TestProfilesExplain_RequiresArg(t *testing.T) {
	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain"})

	err := root.Execute()
	require.Error(t, err, "explain without a filepath argument must return an error")
}

func TestProfilesExplain_RepoProfileUsed(t *testing.T) {
	dir := t.TempDir()
	content := `
[profile.myprofile]
code_roots = ["app"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trackgrid.toml"), []byte(content), 0o644))
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"profiles", "explain", "--profile", "myprofile", "app/main.go"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Profile: myprofile")
	assert.Contains(t, output, "Module:  app")
}

func TestProfilesExplain_ExcludedByFieldShown(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	// .pyc is in the built-in default exclude_extensions list.
	root.SetArgs([]string{"profiles", "explain", "src/module.pyc"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Reason:",
		"output must contain 'Reason:' when a file is excluded")
	assert.Contains(t, output, "exclude_extensions")
}

func TestProfilesExplain_UnclaimedPathShowsUntracked(t *testing.T) {
	dir := t.TempDir()
	changeDirForTest(t, dir)

	root := newTestExplain()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	// Not under any of the built-in default's code_roots or doc_roots.
	root.SetArgs([]string{"profiles", "explain", "random/README_NOTES.txt"})

	err := root.Execute()
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "INCLUDED")
	assert.Contains(t, output, "untracked")
}

func TestProfilesExplainCmd_Registered(t *testing.T) {
	found := false
	for _, cmd := range profilesCmd.Commands() {
		if cmd.Use == "explain <filepath>" {
			found = true
			break
		}
	}
	assert.True(t, found, "profiles command must have an 'explain <filepath>' subcommand")
}
