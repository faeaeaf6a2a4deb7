package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execQuarry runs the CLI with the given args and returns combined output.
func execQuarry(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// writeFile creates a file with parent directories under dir.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// When: executing with --help
	out, err := execQuarry(t, "--help")

	// Then: usage information is shown
	require.NoError(t, err)
	assert.Contains(t, out, "quarry")
	assert.Contains(t, out, "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	// When: executing with --version
	out, err := execQuarry(t, "--version")

	// Then: the version template is used
	require.NoError(t, err)
	assert.Contains(t, out, "quarry version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: every user-facing command is registered
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"index", "search", "status", "mount", "unmount", "sources", "version"} {
		assert.Contains(t, names, want)
	}
}
