package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackgrid/trackgrid/internal/priority"
)

func TestRunAddDependency_SetsForwardAndReciprocal(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, runAddDependency(cmd, []string{path, "1", "1A:<"}))
	assert.Contains(t, buf.String(), "1: ")

	lt, err := loadTrackerFile(path)
	require.NoError(t, err)
	fwd, err := lt.get("1", "1A")
	require.NoError(t, err)
	assert.Equal(t, priority.DependsOn, fwd)
	rev, err := lt.get("1A", "1")
	require.NoError(t, err)
	assert.Equal(t, priority.DependedOnBy, rev)
}

func TestRunAddDependency_MultipleTargets(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	require.NoError(t, runAddDependency(cmd, []string{path, "1", "1A:<", "1B:x"}))

	lt, err := loadTrackerFile(path)
	require.NoError(t, err)
	a, err := lt.get("1", "1A")
	require.NoError(t, err)
	assert.Equal(t, priority.DependsOn, a)
	b, err := lt.get("1", "1B")
	require.NoError(t, err)
	assert.Equal(t, priority.Mutual, b)
}

func TestRunAddDependency_RejectsMalformedPair(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	err := runAddDependency(cmd, []string{path, "1", "1A"})
	assert.Error(t, err)
}

func TestRunAddDependency_RejectsUnknownSource(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	err := runAddDependency(cmd, []string{path, "nope", "1A:<"})
	assert.Error(t, err)
}

func TestRunAddDependency_RejectsUnknownTarget(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	err := runAddDependency(cmd, []string{path, "1", "nope:<"})
	assert.Error(t, err)
}

func TestRunAddDependency_RejectsSelfTarget(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	err := runAddDependency(cmd, []string{path, "1", "1:<"})
	assert.Error(t, err)
}

func TestApplyDependency_MutualCollapseWhenBothSidesAgree(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	// Contrive both cells already holding the same directional character --
	// the conflicting state applyDependency resolves by collapsing to a
	// mutual relation.
	require.NoError(t, lt.set("1", "1A", priority.DependsOn))
	require.NoError(t, lt.set("1A", "1", priority.DependsOn))

	table := resolvePriorityTable()
	n, err := applyDependency(lt, table, "1", "1A", priority.DependsOn, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fwd, _ := lt.get("1", "1A")
	rev, _ := lt.get("1A", "1")
	assert.Equal(t, priority.Mutual, fwd)
	assert.Equal(t, priority.Mutual, rev)
}

func TestApplyDependency_FillsReciprocalPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	table := resolvePriorityTable()
	n, err := applyDependency(lt, table, "1", "1A", priority.DependsOn, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // forward set + reciprocal fill

	fwd, _ := lt.get("1", "1A")
	rev, _ := lt.get("1A", "1")
	assert.Equal(t, priority.DependsOn, fwd)
	assert.Equal(t, priority.DependedOnBy, rev)
}

func TestApplyDependency_WeakerSuggestionDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	table := resolvePriorityTable()
	_, err = applyDependency(lt, table, "1", "1A", priority.Mutual, false)
	require.NoError(t, err)

	n, err := applyDependency(lt, table, "1", "1A", priority.SemanticWeak, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	fwd, _ := lt.get("1", "1A")
	assert.Equal(t, priority.Mutual, fwd)
}

func TestApplyDependency_ForceApplyOverwritesRegardless(t *testing.T) {
	dir := t.TempDir()
	path := threeKeyFixture(t, dir, "mod_tracker.md")
	lt, err := loadTrackerFile(path)
	require.NoError(t, err)

	table := resolvePriorityTable()
	_, err = applyDependency(lt, table, "1", "1A", priority.Mutual, false)
	require.NoError(t, err)

	n, err := applyDependency(lt, table, "1", "1A", priority.SemanticWeak, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fwd, _ := lt.get("1", "1A")
	assert.Equal(t, priority.SemanticWeak, fwd)
}
