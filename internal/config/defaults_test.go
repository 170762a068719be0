package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile_Values(t *testing.T) {
	t.Parallel()

	p := DefaultProfile()
	require.NotNil(t, p)

	assert.Equal(t, []string{"src", "internal", "cmd"}, p.CodeRoots)
	assert.Equal(t, []string{"docs"}, p.DocRoots)
	assert.Equal(t, ".trackgrid", p.TrackersDir)
	assert.Equal(t, ".trackgrid/backups", p.BackupsDir)
	assert.False(t, p.ForceApply)
	assert.Nil(t, p.Extends)
}

func TestDefaultProfile_ExcludeLists(t *testing.T) {
	t.Parallel()

	p := DefaultProfile()

	assert.Contains(t, p.ExcludeDirs, "node_modules")
	assert.Contains(t, p.ExcludeDirs, ".git")
	assert.Contains(t, p.ExcludeDirs, "vendor")
	assert.Contains(t, p.ExcludeDirs, "dist")

	assert.Empty(t, p.ExcludePaths)
	assert.Contains(t, p.ExcludeExtensions, ".pyc")
	assert.Contains(t, p.ExcludeExtensions, ".lock")
	assert.Contains(t, p.ExcludePatterns, "**/*_generated.go")
}

func TestDefaultProfile_PriorityOrder(t *testing.T) {
	t.Parallel()

	p := DefaultProfile()
	assert.Equal(t, []string{"p", "s", "S", "n", "d", "<", ">", "x"}, p.PriorityOrder)
}

func TestDefaultProfile_ReturnsFreshCopyEachCall(t *testing.T) {
	t.Parallel()

	p1 := DefaultProfile()
	p1.CodeRoots[0] = "mutated"
	p1.ExcludeDirs = append(p1.ExcludeDirs, "extra")

	p2 := DefaultProfile()
	assert.Equal(t, "src", p2.CodeRoots[0], "mutating one returned profile must not affect later calls")
	assert.NotContains(t, p2.ExcludeDirs, "extra")
}
