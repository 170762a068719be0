package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/trackgrid/trackgrid/internal/tracker"
)

// writeFixtureTracker writes a tracker with the given keys to dir/name and
// returns its path. Rows are given as raw (decompressed) characters.
func writeFixtureTracker(t *testing.T, dir, name string, keys []string, defs map[string]string, rows map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	in := tracker.WriteInput{
		Keys:         keys,
		Defs:         defs,
		LastKeyEdit:  "initial",
		LastGridEdit: "Grid structure updated",
		Rows:         rows,
	}
	require.NoError(t, tracker.Write(path, trackerTypeForPath(path), in, tracker.WriteOptions{}))
	return path
}

func threeKeyFixture(t *testing.T, dir, name string) string {
	t.Helper()
	return writeFixtureTracker(t, dir, name,
		[]string{"1", "1A", "1B"},
		map[string]string{"1": "src", "1A": "src/a.go", "1B": "src/b.go"},
		map[string]string{
			"1":  "opp",
			"1A": "pop",
			"1B": "ppo",
		},
	)
}

func TestTrackerTypeForPath(t *testing.T) {
	assert.Equal(t, tracker.Main, trackerTypeForPath("/x/main_tracker.md"))
	assert.Equal(t, tracker.Doc, trackerTypeForPath("/x/doc_tracker.md"))
	assert.Equal(t, tracker.Mini, trackerTypeForPath("/x/core_tracker.md"))
}

func TestLoadTrackerFile_SortsKeysAndDecompresses(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	lt, err := loadTrackerFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1A", "1B"}, lt.order)
	c, err := lt.get("1", "1A")
	require.NoError(t, err)
	assert.Equal(t, priority.Placeholder, c)
}

func TestLoadTrackerFile_SingleKeyTrackerLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken_tracker.md")
	in := tracker.WriteInput{
		Keys: []string{"1"},
		Defs: map[string]string{"1": "src"},
		Rows: map[string]string{"1": "o"},
	}
	require.NoError(t, tracker.Write(path, tracker.Mini, in, tracker.WriteOptions{}))

	lt, err := loadTrackerFile(path)
	require.NoError(t, err)
	assert.Len(t, lt.order, 1)
}

func TestLoadedTracker_GetSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	require.NoError(t, lt.set("1", "1A", priority.DependsOn))
	c, err := lt.get("1", "1A")
	require.NoError(t, err)
	assert.Equal(t, priority.DependsOn, c)
}

func TestLoadedTracker_GetUnknownKeyErrors(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	_, err = lt.get("nope", "1A")
	assert.Error(t, err)
	_, err = lt.get("1", "nope")
	assert.Error(t, err)
}

func TestLoadedTracker_HasKey(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	assert.True(t, lt.hasKey("1A"))
	assert.False(t, lt.hasKey("9Z"))
}

func TestLoadedTracker_SaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	require.NoError(t, lt.set("1", "1A", priority.Mutual))
	require.NoError(t, lt.save("edited keys", "edited grid", tracker.WriteOptions{}))

	reloaded, err := loadTrackerFile(path)
	require.NoError(t, err)
	c, err := reloaded.get("1", "1A")
	require.NoError(t, err)
	assert.Equal(t, priority.Mutual, c)
	assert.Equal(t, "edited keys", reloaded.file.LastKeyEdit)
	assert.Equal(t, "edited grid", reloaded.file.LastGridEdit)
}

func TestResolvePriorityTable_FallsBackToDefault(t *testing.T) {
	table := resolvePriorityTable()
	require.NotNil(t, table)
	// Placeholder must always rank below any real relation character.
	assert.True(t, table.Higher(priority.DependsOn, priority.Placeholder))
}

func TestCharName_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, "self", charName(priority.Self))
	assert.Equal(t, "mutual", charName(priority.Mutual))
	assert.Equal(t, "depends-on", charName(priority.DependsOn))
	assert.Equal(t, "unknown", charName(priority.Char('?')))
}
