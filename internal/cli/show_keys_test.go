package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunShowKeys_ListsEveryKeyWithItsPath(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, runShowKeys(cmd, []string{path}))
	out := buf.String()
	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "src/a.go")
	assert.Contains(t, out, "src/b.go")
}

func TestRunShowKeys_MissingTrackerErrors(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	err := runShowKeys(cmd, []string{"/nonexistent/path/mod_tracker.md"})
	assert.Error(t, err)
}

func TestSpaces_PadsOrEmptyForNonPositive(t *testing.T) {
	assert.Equal(t, "   ", spaces(3))
	assert.Equal(t, "", spaces(0))
	assert.Equal(t, "", spaces(-1))
}
