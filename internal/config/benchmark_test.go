package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearTrackgridEnvForBenchmark unsets all TRACKGRID_* environment variables.
// It does not use t.Setenv because testing.B does not support it.
func clearTrackgridEnvForBenchmark() {
	for _, name := range []string{
		EnvProfile, EnvCodeRoots, EnvDocRoots, EnvTrackersDir,
		EnvBackupsDir, EnvPriorityOrder, EnvForceApply, EnvLogFormat,
	} {
		os.Unsetenv(name)
	}
}

// BenchmarkConfigResolve measures the cost of config resolution across
// different source configurations.
func BenchmarkConfigResolve(b *testing.B) {
	b.Run("defaults-only", func(b *testing.B) {
		clearTrackgridEnvForBenchmark()

		dir := b.TempDir()
		globalPath := filepath.Join(dir, "nonexistent.toml")
		opts := ResolveOptions{
			TargetDir:        dir,
			GlobalConfigPath: globalPath,
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = Resolve(opts)
		}
	})

	b.Run("single-file", func(b *testing.B) {
		clearTrackgridEnvForBenchmark()

		dir := b.TempDir()
		tomlContent := `
[profile.default]
code_roots = ["src", "internal", "cmd"]
doc_roots = ["docs"]
exclude_dirs = ["node_modules", ".git", "dist"]
trackers_dir = ".trackgrid"
force_apply = false
`
		tomlPath := filepath.Join(dir, "trackgrid.toml")
		if err := os.WriteFile(tomlPath, []byte(tomlContent), 0o644); err != nil {
			b.Fatal(err)
		}

		opts := ResolveOptions{
			TargetDir:        dir,
			GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = Resolve(opts)
		}
	})

	b.Run("multi-source", func(b *testing.B) {
		clearTrackgridEnvForBenchmark()

		globalDir := b.TempDir()
		globalContent := `
[profile.default]
trackers_dir = ".global-trackers"
priority_order = ["n", "x"]
`
		globalPath := filepath.Join(globalDir, "global.toml")
		if err := os.WriteFile(globalPath, []byte(globalContent), 0o644); err != nil {
			b.Fatal(err)
		}

		repoDir := b.TempDir()
		repoContent := `
[profile.default]
code_roots = ["src"]
force_apply = true
`
		repoPath := filepath.Join(repoDir, "trackgrid.toml")
		if err := os.WriteFile(repoPath, []byte(repoContent), 0o644); err != nil {
			b.Fatal(err)
		}

		opts := ResolveOptions{
			TargetDir:        repoDir,
			GlobalConfigPath: globalPath,
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = Resolve(opts)
		}
	})

	b.Run("ten-profiles", func(b *testing.B) {
		clearTrackgridEnvForBenchmark()

		dir := b.TempDir()

		// Build a config with 10 named profiles.
		var sb strings.Builder
		sb.WriteString("[profile.default]\ntrackers_dir = \".trackgrid\"\ncode_roots = [\"src\"]\n\n")
		for i := 1; i <= 9; i++ {
			sb.WriteString(fmt.Sprintf("[profile.profile%d]\nextends = \"default\"\ntrackers_dir = \".p%d\"\n\n",
				i, i))
		}

		tomlPath := filepath.Join(dir, "trackgrid.toml")
		if err := os.WriteFile(tomlPath, []byte(sb.String()), 0o644); err != nil {
			b.Fatal(err)
		}

		opts := ResolveOptions{
			ProfileName:      "profile5",
			TargetDir:        dir,
			GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = Resolve(opts)
		}
	})
}

// BenchmarkConfigValidate measures the cost of config validation.
func BenchmarkConfigValidate(b *testing.B) {
	b.Run("clean-config", func(b *testing.B) {
		cfg, err := LoadFromString(`
[profile.default]
code_roots = ["src", "internal"]
doc_roots = ["docs"]
exclude_dirs = ["node_modules", ".git"]
trackers_dir = ".trackgrid"
force_apply = false
`, "bench")
		if err != nil {
			b.Fatal(err)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = Validate(cfg)
		}
	})

	b.Run("complex-config", func(b *testing.B) {
		cfg, err := LoadFromString(`
[profile.default]
code_roots = ["src", "internal", "cmd"]
doc_roots = ["docs"]
exclude_dirs = ["node_modules", ".git", "dist", "coverage", "__pycache__", ".next"]
exclude_paths = ["internal/generated", "testdata/fixtures"]
exclude_extensions = [".pyc", ".lock", ".pb.go"]
exclude_patterns = ["**/*_generated.go", "**/*.pb.go", "**/*_mock.go"]
trackers_dir = ".trackgrid"
backups_dir = ".trackgrid/backups"
priority_order = ["n", "x", "<", ">", "S", "s", "d", "p"]
force_apply = true

[profile.staging]
extends = "default"
trackers_dir = ".trackgrid-staging"
force_apply = false

[profile.ci]
extends = "default"
force_apply = true
priority_order = ["n", "x"]
`, "bench")
		if err != nil {
			b.Fatal(err)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = Validate(cfg)
		}
	})
}
