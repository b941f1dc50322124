package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const archiveFile = `%% von-archive: 1
%% key: USA19P1
%% source: USAMO 2019/1
%% url: https://example.org/usa19p1
Find all functions f from the integers to the integers.
---
Only the identity works.
%%%
%% key: USA19P2
%% source: USAMO 2019/2
%% tags: geometry
Prove that the incircle is tangent to the circumcircle.
%%%
%% key: S1
%% source: Secret 2020/4
%% secret: yes
Hidden statement.
`

// isolate points HOME and XDG_CONFIG_HOME at a temp dir and clears VON_*
// overrides.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, v := range []string{"VON_BASE_PATH", "VON_SNAPSHOT_BACKEND", "VON_LOG_LEVEL", "VON_PICKER", "VON_SEARCH_LIMIT", "NO_COLOR"} {
		t.Setenv(v, "")
	}
}

// newArchive creates an isolated archive base holding files under src/.
func newArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	isolate(t)
	base := t.TempDir()
	for path, content := range files {
		full := filepath.Join(base, "src", filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return base
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	_ = stopProfilingAndLogging()
	return stdout.String(), stderr.String(), err
}
