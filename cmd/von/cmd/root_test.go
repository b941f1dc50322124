package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	isolate(t)

	// When: executing with --help
	stdout, _, err := run(t, "--help")

	// Then: it should show usage information
	require.NoError(t, err)
	assert.Contains(t, stdout, "von")
	assert.Contains(t, stdout, "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	isolate(t)

	// When: executing with --version
	stdout, _, err := run(t, "--version")

	// Then: it should print the version template
	require.NoError(t, err)
	assert.Contains(t, stdout, "von version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()

	// When: checking available commands
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	// Then: every archive command is registered
	for _, want := range []string{"reindex", "search", "show", "status", "clear", "candidates", "config", "logs", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_StatusAlias(t *testing.T) {
	cmd := NewRootCmd()

	found, _, err := cmd.Find([]string{"ss"})

	require.NoError(t, err)
	assert.Equal(t, "status", found.Name())
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"base", "config", "debug", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestVersionCmd_Short(t *testing.T) {
	isolate(t)

	stdout, _, err := run(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRootCmd_ProfileMem(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "heap.prof")

	// When: running a command with --profile-mem
	_, _, err := run(t, "--profile-mem", path, "version")

	// Then: the heap profile is written after the command
	require.NoError(t, err)
	assert.FileExists(t, path)
}
