package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDigest(t *testing.T) {
	// Given two different contents
	a := Digest([]byte("hello world"))
	b := Digest([]byte("hello worlds"))

	// Then digests are 16 hex chars and differ
	assert.Len(t, a, DigestLength)
	assert.Len(t, b, DigestLength)
	assert.NotEqual(t, a, b)

	// And the same content always hashes the same
	assert.Equal(t, a, Digest([]byte("hello world")))
}

func TestDigestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.md", "# Title\n")

	got, err := DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, Digest([]byte("# Title\n")), got)

	_, err = DigestFile(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestScanAll(t *testing.T) {
	// Given a tree with text, ignored, and binary files
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "# Readme\n")
	writeFile(t, dir, "docs/guide.md", "guide content\n")
	writeFile(t, dir, "node_modules/pkg/index.js", "ignored")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.txt"), []byte{0x00, 0x01, 0x02}, 0o644))

	s, err := New()
	require.NoError(t, err)

	// When scanning
	files, skipped, err := s.ScanAll(context.Background(), &Options{
		Roots: []Root{{Path: dir}},
	})
	require.NoError(t, err)

	// Then text files are discovered under slash-separated keys
	require.Contains(t, files, "readme.md")
	require.Contains(t, files, "docs/guide.md")
	assert.NotContains(t, files, "node_modules/pkg/index.js")

	fi := files["docs/guide.md"]
	assert.Equal(t, "markdown", fi.Type)
	assert.Equal(t, Digest([]byte("guide content\n")), fi.Digest)
	assert.Equal(t, int64(len("guide content\n")), fi.Size)
	assert.WithinDuration(t, time.Now(), fi.ModTime, time.Minute)

	// And the binary file is reported as skipped
	require.Len(t, skipped, 1)
	assert.Equal(t, "blob.txt", skipped[0].Path)
	assert.Contains(t, skipped[0].Reason, "binary")
}

func TestScanAllMultipleRoots(t *testing.T) {
	// Given two roots, the second with an alias
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, first, "a.md", "first\n")
	writeFile(t, second, "b.md", "second\n")

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.ScanAll(context.Background(), &Options{
		Roots: []Root{
			{Path: first},
			{Path: second, Alias: "extra"},
		},
	})
	require.NoError(t, err)

	// Then the alias prefixes keys from the second root
	assert.Contains(t, files, "a.md")
	assert.Contains(t, files, "extra/b.md")
}

func TestScanAllMaxFileSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok\n")
	writeFile(t, dir, "large.txt", "0123456789abcdef")

	s, err := New()
	require.NoError(t, err)

	files, skipped, err := s.ScanAll(context.Background(), &Options{
		Roots:       []Root{{Path: dir}},
		MaxFileSize: 8,
	})
	require.NoError(t, err)

	assert.Contains(t, files, "small.txt")
	require.Len(t, skipped, 1)
	assert.Equal(t, "large.txt", skipped[0].Path)
	assert.Contains(t, skipped[0].Reason, "too large")
}

func TestScanAllRootIgnoreFile(t *testing.T) {
	// Given a root-level ignore file excluding a directory
	dir := t.TempDir()
	writeFile(t, dir, ".quarryignore", "drafts/\n*.log\n")
	writeFile(t, dir, "keep.md", "kept\n")
	writeFile(t, dir, "drafts/wip.md", "draft\n")
	writeFile(t, dir, "trace.log", "noise\n")

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.ScanAll(context.Background(), &Options{
		Roots: []Root{{Path: dir}},
	})
	require.NoError(t, err)

	assert.Contains(t, files, "keep.md")
	assert.Contains(t, files, ".quarryignore")
	assert.NotContains(t, files, "drafts/wip.md")
	assert.NotContains(t, files, "trace.log")
}

func TestScanAllNestedIgnoreFile(t *testing.T) {
	// Given a nested ignore file scoped to its own directory
	dir := t.TempDir()
	writeFile(t, dir, "top.tmp", "kept at top\n")
	writeFile(t, dir, "sub/.quarryignore", "*.tmp\n")
	writeFile(t, dir, "sub/scratch.tmp", "excluded\n")
	writeFile(t, dir, "sub/notes.md", "kept\n")

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.ScanAll(context.Background(), &Options{
		Roots: []Root{{Path: dir}},
	})
	require.NoError(t, err)

	// Then the nested rules only apply below sub/
	assert.Contains(t, files, "top.tmp")
	assert.Contains(t, files, "sub/notes.md")
	assert.NotContains(t, files, "sub/scratch.tmp")
}

func TestScanAllExtraPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.md", "kept\n")
	writeFile(t, dir, "secret.md", "excluded\n")

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.ScanAll(context.Background(), &Options{
		Roots:         []Root{{Path: dir}},
		ExtraPatterns: []string{"secret.md"},
	})
	require.NoError(t, err)

	assert.Contains(t, files, "keep.md")
	assert.NotContains(t, files, "secret.md")
}

func TestScanAllSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real.md", "real\n")
	link := filepath.Join(dir, "link.md")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.ScanAll(context.Background(), &Options{
		Roots: []Root{{Path: dir}},
	})
	require.NoError(t, err)

	assert.Contains(t, files, "real.md")
	assert.NotContains(t, files, "link.md")

	// When following symlinks the target content is indexed
	files, _, err = s.ScanAll(context.Background(), &Options{
		Roots:          []Root{{Path: dir}},
		FollowSymlinks: true,
	})
	require.NoError(t, err)
	assert.Contains(t, files, "link.md")
}

func TestScanRejectsBadRoots(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), nil)
	assert.Error(t, err)

	_, err = s.Scan(context.Background(), &Options{})
	assert.Error(t, err)

	_, err = s.Scan(context.Background(), &Options{
		Roots: []Root{{Path: filepath.Join(t.TempDir(), "nope")}},
	})
	assert.Error(t, err)
}

func TestScanContextCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, dir, filepath.Join("many", string(rune('a'+i%26))+".md"), "content\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New()
	require.NoError(t, err)

	ch, err := s.Scan(ctx, &Options{Roots: []Root{{Path: dir}}})
	require.NoError(t, err)

	// Then the stream terminates instead of hanging
	for range ch {
	}
}
