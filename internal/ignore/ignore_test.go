package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_DefaultPatterns(t *testing.T) {
	m := New()

	tests := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{".git", true, true},
		{".git/config", false, true},
		{"node_modules/lodash/index.js", false, true},
		{"src/__pycache__/mod.pyc", false, true},
		{".quarry/index.db", false, true},
		{"notes/errata.db", false, true},
		{"notes/journal.md", false, false},
		{"src/main.go", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_DirOnlyPattern_MatchesSubtree(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("secrets/")

	assert.True(t, m.Match("secrets", true))
	assert.True(t, m.Match("secrets/api.key", false))
	assert.True(t, m.Match("sub/secrets/api.key", false))
	assert.False(t, m.Match("secrets", false), "plain file named secrets is not a directory match")
}

func TestMatcher_GlobPatterns(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("*.log")
	m.AddPattern("scratch-?.txt")

	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("deep/nested/debug.log", false))
	assert.True(t, m.Match("scratch-1.txt", false))
	assert.False(t, m.Match("scratch-10.txt", false))
}

func TestMatcher_AnchoredPattern(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("/TODO.md")

	assert.True(t, m.Match("TODO.md", false))
	assert.False(t, m.Match("docs/TODO.md", false))
}

func TestMatcher_NegationReincludes(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("*.log")
	m.AddPattern("!keep.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestMatcher_DoubleStarPattern(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("**/generated/*.go")

	assert.True(t, m.Match("generated/a.go", false))
	assert.True(t, m.Match("pkg/generated/a.go", false))
	assert.False(t, m.Match("pkg/generated/sub/a.go", false))
}

func TestLoad_ReadsIgnoreFileAndDefaults(t *testing.T) {
	root := t.TempDir()
	content := "# private notes\narchive/\n*.tmp\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte(content), 0o644))

	m, err := Load(root, []string{"*.bak"})
	require.NoError(t, err)

	assert.True(t, m.Match("archive/2019/old.md", false), "ignore file pattern")
	assert.True(t, m.Match("draft.tmp", false), "ignore file glob")
	assert.True(t, m.Match("draft.bak", false), "extra pattern")
	assert.True(t, m.Match(".git/HEAD", false), "defaults still apply")
	assert.False(t, m.Match("notes/today.md", false))
}

func TestLoad_MissingIgnoreFileUsesDefaults(t *testing.T) {
	m, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.True(t, m.Match("node_modules/x.js", false))
	assert.False(t, m.Match("readme.md", false))
}

func TestRipgrepGlobs(t *testing.T) {
	m := NewEmpty()
	m.AddPattern("archive/")
	m.AddPattern("docs/build/")
	m.AddPattern("*.tmp")
	m.AddPattern("!keep.tmp")

	globs := m.RipgrepGlobs()

	// Unanchored dir patterns match anywhere, like the matcher does;
	// ripgrep would anchor a bare "archive/**" to the root.
	assert.Contains(t, globs, "!**/archive/**")
	// A pattern with an internal slash is root-anchored in both.
	assert.Contains(t, globs, "!docs/build/**")
	assert.Contains(t, globs, "!*.tmp")

	// Re-inclusions must not appear: an include-form -g glob turns
	// ripgrep's override set into a whitelist that drops every file
	// matching no glob.
	for _, g := range globs {
		assert.True(t, strings.HasPrefix(g, "!"), "unexpected include-form glob %q", g)
	}
}

func TestRipgrepGlobsDefaultsExcludeNestedStateDirs(t *testing.T) {
	globs := New().RipgrepGlobs()

	// .git and .quarry must stay hidden from the pattern source at any
	// depth, not just at the root.
	assert.Contains(t, globs, "!**/.git/**")
	assert.Contains(t, globs, "!**/.quarry/**")
	assert.NotContains(t, globs, "!.git/**")
}
