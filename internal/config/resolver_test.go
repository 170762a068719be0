package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

// writeTomlFile writes content to a temporary TOML file and returns its path.
func writeTomlFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearTrackgridEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvProfile, EnvCodeRoots, EnvDocRoots, EnvTrackersDir,
		EnvBackupsDir, EnvPriorityOrder, EnvForceApply, EnvLogFormat,
	} {
		t.Setenv(name, "")
	}
}

// ── Layer 1: defaults ─────────────────────────────────────────────────────────

func TestResolve_DefaultsOnly(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	require.NotNil(t, rc)

	want := DefaultProfile()
	assert.Equal(t, want.CodeRoots, rc.Profile.CodeRoots)
	assert.Equal(t, want.DocRoots, rc.Profile.DocRoots)
	assert.Equal(t, want.TrackersDir, rc.Profile.TrackersDir)
	assert.Equal(t, want.BackupsDir, rc.Profile.BackupsDir)
	assert.Equal(t, want.ForceApply, rc.Profile.ForceApply)
	assert.Equal(t, "default", rc.ProfileName)

	for key, src := range rc.Sources {
		assert.Equal(t, SourceDefault, src, "key %q must come from defaults layer", key)
	}
}

// ── Layer 2/3: global + repo config files ──────────────────────────────────

func TestResolve_RepoConfigOverridesDefaults(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	writeTomlFile(t, dir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".repo-trackers"
force_apply = true
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, ".repo-trackers", rc.Profile.TrackersDir)
	assert.True(t, rc.Profile.ForceApply)
	assert.Equal(t, SourceRepo, rc.Sources["trackers_dir"])
}

func TestResolve_GlobalConfigAppliesWhenNoRepoConfig(t *testing.T) {
	clearTrackgridEnv(t)

	globalDir := t.TempDir()
	globalPath := writeTomlFile(t, globalDir, "config.toml", `
[profile.default]
trackers_dir = ".global-trackers"
`)

	repoDir := t.TempDir() // no trackgrid.toml
	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: globalPath,
	})

	require.NoError(t, err)
	assert.Equal(t, ".global-trackers", rc.Profile.TrackersDir)
	assert.Equal(t, SourceGlobal, rc.Sources["trackers_dir"])
}

func TestResolve_RepoConfigWinsOverGlobal(t *testing.T) {
	clearTrackgridEnv(t)

	globalDir := t.TempDir()
	globalPath := writeTomlFile(t, globalDir, "config.toml", `
[profile.default]
trackers_dir = ".global-trackers"
`)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".repo-trackers"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		GlobalConfigPath: globalPath,
	})

	require.NoError(t, err)
	assert.Equal(t, ".repo-trackers", rc.Profile.TrackersDir)
	assert.Equal(t, SourceRepo, rc.Sources["trackers_dir"])
}

func TestResolve_MissingConfigFilesAreSilentlyIgnored(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	_, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "no-such-global.toml"),
	})
	require.NoError(t, err)
}

func TestResolve_NamedProfileNotFoundErrors(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	writeTomlFile(t, dir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".trackgrid"
`)

	_, err := Resolve(ResolveOptions{
		ProfileName:      "ghost",
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})
	assert.ErrorContains(t, err, "ghost")
}

func TestResolve_ProfileFileOverridesRepoConfig(t *testing.T) {
	clearTrackgridEnv(t)

	repoDir := t.TempDir()
	writeTomlFile(t, repoDir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".repo-trackers"
`)

	standaloneDir := t.TempDir()
	standalonePath := writeTomlFile(t, standaloneDir, "standalone.toml", `
[profile.default]
trackers_dir = ".standalone-trackers"
`)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        repoDir,
		ProfileFile:      standalonePath,
		GlobalConfigPath: filepath.Join(repoDir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, ".standalone-trackers", rc.Profile.TrackersDir,
		"--profile-file must prevent auto-discovery of the repo config")
}

func TestResolve_ProfileFileMissingProfileErrors(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	standalonePath := writeTomlFile(t, dir, "standalone.toml", `
[profile.other]
trackers_dir = ".x"
`)

	_, err := Resolve(ResolveOptions{
		ProfileName:      "default",
		ProfileFile:      standalonePath,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})
	assert.ErrorContains(t, err, "default")
}

// ── Layer 4: environment variables ──────────────────────────────────────────

func TestResolve_EnvOverridesConfigFile(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	writeTomlFile(t, dir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".repo-trackers"
`)

	t.Setenv(EnvTrackersDir, ".env-trackers")

	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, ".env-trackers", rc.Profile.TrackersDir)
	assert.Equal(t, SourceEnv, rc.Sources["trackers_dir"])
}

func TestResolve_ProfileNameFromEnv(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	writeTomlFile(t, dir, "trackgrid.toml", `
[profile.ci]
trackers_dir = ".ci-trackers"
`)

	t.Setenv(EnvProfile, "ci")

	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})

	require.NoError(t, err)
	assert.Equal(t, "ci", rc.ProfileName)
	assert.Equal(t, ".ci-trackers", rc.Profile.TrackersDir)
}

// ── Layer 5: CLI flags (highest precedence) ────────────────────────────────

func TestResolve_CLIFlagsWinOverEverything(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	writeTomlFile(t, dir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".repo-trackers"
`)
	t.Setenv(EnvTrackersDir, ".env-trackers")

	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
		CLIFlags: map[string]any{
			"trackers_dir": ".flag-trackers",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, ".flag-trackers", rc.Profile.TrackersDir)
	assert.Equal(t, SourceFlag, rc.Sources["trackers_dir"])
}

// ── auto-discovery through DiscoverRepoConfig ──────────────────────────────

func TestResolve_AutoDiscoversRepoConfigInParentDir(t *testing.T) {
	clearTrackgridEnv(t)

	parent := t.TempDir()
	writeTomlFile(t, parent, "trackgrid.toml", `
[profile.default]
trackers_dir = ".discovered"
`)

	child := filepath.Join(parent, "child")
	require.NoError(t, os.MkdirAll(child, 0o755))

	// Resolve itself does not walk parents (it only looks at TargetDir/trackgrid.toml),
	// so callers are expected to run DiscoverRepoConfig first when auto-discovery
	// is desired. Verify that behavior explicitly here.
	found, err := DiscoverRepoConfig(child)
	require.NoError(t, err)
	require.NotEmpty(t, found)

	rc, err := Resolve(ResolveOptions{
		TargetDir:        filepath.Dir(found),
		GlobalConfigPath: filepath.Join(parent, "nonexistent-global.toml"),
	})
	require.NoError(t, err)
	assert.Equal(t, ".discovered", rc.Profile.TrackersDir)
}

// ── source attribution completeness ────────────────────────────────────────

func TestResolve_SourceMapCoversAllDefaultFields(t *testing.T) {
	clearTrackgridEnv(t)

	dir := t.TempDir()
	rc, err := Resolve(ResolveOptions{
		TargetDir:        dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent-global.toml"),
	})
	require.NoError(t, err)

	for _, key := range []string{
		"trackers_dir", "backups_dir", "force_apply",
		"code_roots", "doc_roots", "exclude_dirs",
		"exclude_paths", "exclude_extensions", "exclude_patterns", "priority_order",
	} {
		_, ok := rc.Sources[key]
		assert.True(t, ok, "source map must contain key %q", key)
	}
}

// ── extractProfileFlat / flattenProfileRaw internals ───────────────────────

func TestExtractProfileFlat_MissingFileReturnsNilNoError(t *testing.T) {
	flat, err := extractProfileFlat(filepath.Join(t.TempDir(), "missing.toml"), "default")
	require.NoError(t, err)
	assert.Nil(t, flat)
}

func TestExtractProfileFlat_MissingProfileReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	path := writeTomlFile(t, dir, "trackgrid.toml", `
[profile.other]
trackers_dir = ".other"
`)

	flat, err := extractProfileFlat(path, "default")
	require.NoError(t, err)
	assert.Nil(t, flat)
}

func TestExtractProfileFlat_InvalidTOMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeTomlFile(t, dir, "trackgrid.toml", "[broken")

	_, err := extractProfileFlat(path, "default")
	assert.Error(t, err)
}

func TestExtractProfileFlat_OnlyExplicitFieldsIncluded(t *testing.T) {
	dir := t.TempDir()
	path := writeTomlFile(t, dir, "trackgrid.toml", `
[profile.default]
trackers_dir = ".explicit"
`)

	flat, err := extractProfileFlat(path, "default")
	require.NoError(t, err)
	require.NotNil(t, flat)
	assert.Equal(t, ".explicit", flat["trackers_dir"])
	_, hasBackups := flat["backups_dir"]
	assert.False(t, hasBackups, "fields absent from TOML must not appear in the flat map")
}

func TestRawToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, rawToStringSlice([]interface{}{"a", "b"}))
	assert.Equal(t, []string{"a"}, rawToStringSlice([]string{"a"}))
	assert.Nil(t, rawToStringSlice(42))
}

// ── profileToFlatMap / flatMapToProfile round trip ─────────────────────────

func TestProfileToFlatMap_RoundTrip(t *testing.T) {
	p := &Profile{
		CodeRoots:     []string{"src"},
		DocRoots:      []string{"docs"},
		TrackersDir:   ".t",
		BackupsDir:    ".t/backups",
		PriorityOrder: []string{"n", "x"},
		ForceApply:    true,
	}

	flat := profileToFlatMap(p)
	assert.Equal(t, []string{"src"}, flat["code_roots"])
	assert.Equal(t, true, flat["force_apply"])
}
