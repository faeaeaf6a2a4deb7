package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_NeverIndexed(t *testing.T) {
	// Given: a fresh workspace with no index pass yet
	root := t.TempDir()

	// When: running status
	out, err := execQuarry(t, "status", "--root", root)

	// Then: the index state is reported as never built
	require.NoError(t, err)
	assert.Contains(t, out, "never indexed")
}

func TestStatusCmd_AfterIndex(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "a.md", "alpha")
	writeFile(t, root, "b.txt", "beta")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: running status
	out, err := execQuarry(t, "status", "--root", root)

	// Then: freshness, counts, and the last run are shown
	require.NoError(t, err)
	assert.Contains(t, out, "fresh")
	assert.Contains(t, out, "Files")
	assert.Contains(t, out, "Last run")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "markdown")
	assert.Contains(t, out, "text")
}
