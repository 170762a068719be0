package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportCmd(t *testing.T, format string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("format", "md", "")
	cmd.Flags().StringP("output", "o", "", "")
	require.NoError(t, cmd.Flags().Set("format", format))
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	return cmd, buf
}

func TestRunExportTracker_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	cmd, buf := newExportCmd(t, "md")

	require.NoError(t, runExportTracker(cmd, []string{path}))
	out := buf.String()
	assert.Contains(t, out, "Key Definitions:")
	assert.Contains(t, out, "1: src")
	assert.Contains(t, out, "X 1 1A 1B")
}

func TestRunExportTracker_Dot(t *testing.T) {
	dir := t.TempDir()
	path := writeFixtureTracker(t, dir, "mod_tracker.md",
		[]string{"1", "1A"},
		map[string]string{"1": "src", "1A": "src/a.go"},
		map[string]string{"1": "ox", "1A": "xo"},
	)
	cmd, buf := newExportCmd(t, "dot")

	require.NoError(t, runExportTracker(cmd, []string{path}))
	out := buf.String()
	assert.Contains(t, out, "digraph tracker {")
	assert.Contains(t, out, `"1" -> "1A" [dir=none, label="mutual"];`)
}

func TestRunExportTracker_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFixtureTracker(t, dir, "mod_tracker.md",
		[]string{"1", "1A"},
		map[string]string{"1": "src", "1A": "src/a.go"},
		map[string]string{"1": "o<", "1A": ">o"},
	)
	cmd, buf := newExportCmd(t, "json")

	require.NoError(t, runExportTracker(cmd, []string{path}))

	var parsed exportedTracker
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.ElementsMatch(t, []string{"1", "1A"}, parsed.Keys)
	require.Len(t, parsed.Cells, 2)
}

func TestRunExportTracker_CSV(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	cmd, buf := newExportCmd(t, "csv")

	require.NoError(t, runExportTracker(cmd, []string{path}))
	out := buf.String()
	assert.Contains(t, out, ",1,1A,1B")
}

func TestRunExportTracker_UnknownFormatErrors(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	cmd, _ := newExportCmd(t, "yaml")

	err := runExportTracker(cmd, []string{path})
	assert.Error(t, err)
}

func TestRunExportTracker_WritesToOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	outPath := filepath.Join(dir, "out.json")

	cmd, _ := newExportCmd(t, "json")
	require.NoError(t, cmd.Flags().Set("output", outPath))

	require.NoError(t, runExportTracker(cmd, []string{path}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keys"`)
}
