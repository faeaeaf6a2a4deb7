package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_FindsIndexedContent(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "docs/install.md", "# Install\nDownload the binary and run the installer.")
	writeFile(t, root, "docs/other.md", "Nothing relevant here.")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: searching the index source
	out, err := execQuarry(t, "search", "installer", "--root", root, "--mode", "fts")

	// Then: the matching file is ranked and shown
	require.NoError(t, err)
	assert.Contains(t, out, "docs/install.md")
	assert.NotContains(t, out, "docs/other.md")
}

func TestSearchCmd_JSONFormat(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "guide.md", "token parsing strategies")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: searching with --format json
	out, err := execQuarry(t, "search", "parsing", "--root", root, "--mode", "fts", "--format", "json")

	// Then: the output decodes as a response envelope
	require.NoError(t, err)

	var resp struct {
		Query   string `json:"query"`
		Mode    string `json:"mode"`
		Results []struct {
			Path  string  `json:"path"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "parsing", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "guide.md", resp.Results[0].Path)
	assert.Greater(t, resp.Results[0].Score, 0.0)
}

func TestSearchCmd_NoResultsIsSuccess(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "a.md", "alpha")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: searching for a term nothing contains
	out, err := execQuarry(t, "search", "xylophone", "--root", root, "--mode", "fts")

	// Then: the command succeeds with an empty result message
	require.NoError(t, err)
	assert.Contains(t, out, "no results")
}

func TestSearchCmd_TypeFilter(t *testing.T) {
	// Given: the same term in a markdown and a python file
	root := t.TempDir()
	writeFile(t, root, "notes.md", "handler registration notes")
	writeFile(t, root, "app.py", "def handler(): pass")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: restricting to markdown
	out, err := execQuarry(t, "search", "handler", "--root", root, "--mode", "fts", "--type", "markdown")

	// Then: only the markdown file is returned
	require.NoError(t, err)
	assert.Contains(t, out, "notes.md")
	assert.NotContains(t, out, "app.py")
}

func TestSearchCmd_RejectsUnknownMode(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "a.md", "alpha")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: the mode flag has a typo
	_, err = execQuarry(t, "search", "alpha", "--root", root, "--mode", "ftss")

	// Then: the search fails instead of returning an empty success
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftss")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	// When: searching with no query
	_, err := execQuarry(t, "search", "--root", t.TempDir())

	// Then: argument validation rejects it
	assert.Error(t, err)
}

func TestSearchCmd_MalformedQuerySurfaces(t *testing.T) {
	// Given: an indexed workspace
	root := t.TempDir()
	writeFile(t, root, "a.md", "alpha")
	_, err := execQuarry(t, "index", "--root", root)
	require.NoError(t, err)

	// When: the query has unbalanced quotes
	_, err = execQuarry(t, "search", `"unterminated`, "--root", root, "--mode", "fts")

	// Then: the syntax error is reported, not swallowed
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ERR_403") || strings.Contains(err.Error(), "query"),
		"expected a query syntax error, got: %v", err)
}
