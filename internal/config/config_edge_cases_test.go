package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Base path resolution
// =============================================================================

func TestResolveBase_FlagWins(t *testing.T) {
	isolate(t)
	t.Setenv("VON_BASE_PATH", t.TempDir())
	flag := t.TempDir()

	got, err := ResolveBase(flag)

	require.NoError(t, err)
	assert.Equal(t, flag, got)
}

func TestResolveBase_EnvBeforeUserConfig(t *testing.T) {
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "von", "config.yaml"), "base_path: /from/user/config\n")
	env := t.TempDir()
	t.Setenv("VON_BASE_PATH", env)

	got, err := ResolveBase("")

	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestResolveBase_UserConfig(t *testing.T) {
	xdg := isolate(t)
	want := t.TempDir()
	writeFile(t, filepath.Join(xdg, "von", "config.yaml"), "base_path: "+want+"\n")

	got, err := ResolveBase("")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveBase_RelativeFlagIsMadeAbsolute(t *testing.T) {
	isolate(t)

	got, err := ResolveBase("archive")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "archive", filepath.Base(got))
}

func TestResolveBase_HomeExpansion(t *testing.T) {
	isolate(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolveBase("~/von-archive")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "von-archive"), got)
}

// =============================================================================
// FindBase
// =============================================================================

func TestFindBase_ConfigFileMarksBase(t *testing.T) {
	// Given: a deeply nested directory under a base holding .von.yaml
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".von.yaml"), "version: 1\n")
	deep := filepath.Join(root, "src", "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	// When: searching upward
	got, err := FindBase(deep)

	// Then: the directory with the config is the base
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindBase_DataDirMarksBase(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".von"), 0o755))
	sub := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := FindBase(sub)

	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindBase_NoMarkers_ReturnsStartDir(t *testing.T) {
	dir := t.TempDir()

	got, err := FindBase(dir)

	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.True(t, filepath.IsAbs(got))
}

// =============================================================================
// Merge edge cases
// =============================================================================

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	// Given: a config that sets only one nested field
	isolate(t)
	base := t.TempDir()
	writeFile(t, filepath.Join(base, ".von.yaml"), "search:\n  limit: 0\n  suggestions: 5\n")

	// When: loading
	cfg, err := Load(base)

	// Then: zero values keep defaults
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.Suggestions)
	assert.Equal(t, NewConfig().Search.CacheSize, cfg.Search.CacheSize)
	assert.Equal(t, NewConfig().Search.FieldOrder, cfg.Search.FieldOrder)
}

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read any file")
	}
	isolate(t)
	base := t.TempDir()
	path := filepath.Join(base, ".von.yaml")
	writeFile(t, path, "version: 1\n")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	_, err := Load(base)

	assert.Error(t, err)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Snapshot.Backend = "sqlite"
	cfg.Paths.Exclude = []string{"drafts/**"}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, *cfg, back)
}
