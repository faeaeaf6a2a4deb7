package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/ripgrep"
	"github.com/quarrysearch/quarry/internal/store"
)

// fakeRunner is a canned PatternSearcher.
type fakeRunner struct {
	matches []ripgrep.FileMatch
	err     error
	delay   time.Duration
}

func (f *fakeRunner) Search(ctx context.Context, pattern string, opts ripgrep.Options) ([]ripgrep.FileMatch, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func newTestEngine(t *testing.T, runner PatternSearcher) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, runner, nil), st
}

func seedStore(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	docs := map[string]string{
		"docs/install.md": "how to install and configure the indexer",
		"docs/search.md":  "searching across mounted sources",
	}
	for path, content := range docs {
		require.NoError(t, st.Upsert(ctx, &store.FileRecord{
			Path: path, Filename: path, FileType: "markdown",
			Content: content, Digest: "d", Size: int64(len(content)),
			ModifiedAt: now, IndexedAt: now,
		}))
	}
}

func TestSearchCombined(t *testing.T) {
	runner := &fakeRunner{matches: []ripgrep.FileMatch{
		{Path: "docs/install.md", Count: 4, FirstLine: 2, Snippet: "install here"},
		{Path: "scripts/setup.sh", Count: 1, FirstLine: 9},
	}}
	e, st := newTestEngine(t, runner)
	seedStore(t, st)

	resp, err := e.Search(context.Background(), "install", Options{})
	require.NoError(t, err)

	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Warnings)
	require.NotEmpty(t, resp.Results)

	// The file found by both sources ranks first
	top := resp.Results[0]
	assert.Equal(t, "docs/install.md", top.Path)
	assert.True(t, top.FromFTS)
	assert.True(t, top.FromPattern)

	// The pattern-only file still appears
	paths := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "scripts/setup.sh")
}

func TestSearchNoResultsIsSuccess(t *testing.T) {
	e, st := newTestEngine(t, &fakeRunner{})
	seedStore(t, st)

	resp, err := e.Search(context.Background(), "zzznothing", Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.False(t, resp.Degraded)
}

func TestSearchEmptyQuery(t *testing.T) {
	e, _ := newTestEngine(t, &fakeRunner{})

	_, err := e.Search(context.Background(), "  ", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeQueryEmpty))
}

func TestSearchUnknownModeRejected(t *testing.T) {
	e, st := newTestEngine(t, &fakeRunner{})
	seedStore(t, st)

	// A typo'd mode must be an error, not an empty successful response
	_, err := e.Search(context.Background(), "install", Options{Mode: "ftss"})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "ftss")
}

func TestSearchDegradedWhenPatternFails(t *testing.T) {
	runner := &fakeRunner{err: qerrors.New(qerrors.ErrCodeSourceUnavailable, "rg not found", nil)}
	e, st := newTestEngine(t, runner)
	seedStore(t, st)

	resp, err := e.Search(context.Background(), "install", Options{})
	require.NoError(t, err)

	// FTS results still arrive; the response is marked degraded
	assert.True(t, resp.Degraded)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "pattern search unavailable")
	require.NotEmpty(t, resp.Results)
	assert.True(t, resp.Results[0].FromFTS)
	assert.False(t, resp.Results[0].FromPattern)
}

func TestSearchBothSourcesFailed(t *testing.T) {
	runner := &fakeRunner{err: qerrors.New(qerrors.ErrCodeSourceUnavailable, "rg not found", nil)}
	e, st := newTestEngine(t, runner)
	require.NoError(t, st.Close()) // content index gone too

	_, err := e.Search(context.Background(), "install", Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeBothSourcesFailed))
}

func TestSearchModeFTS(t *testing.T) {
	// The runner must not be consulted in fts mode
	runner := &fakeRunner{err: qerrors.New(qerrors.ErrCodeSourceUnavailable, "should not be called", nil)}
	e, st := newTestEngine(t, runner)
	seedStore(t, st)

	resp, err := e.Search(context.Background(), "install", Options{Mode: ModeFTS})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.True(t, r.FromFTS)
		assert.False(t, r.FromPattern)
	}
}

func TestSearchModePattern(t *testing.T) {
	runner := &fakeRunner{matches: []ripgrep.FileMatch{{Path: "a.md", Count: 3}}}
	e, st := newTestEngine(t, runner)
	require.NoError(t, st.Close()) // index unavailable, pattern mode does not care

	resp, err := e.Search(context.Background(), "needle", Options{Mode: ModePattern})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.md", resp.Results[0].Path)
	assert.True(t, resp.Results[0].FromPattern)
}

func TestSearchMalformedQueryIsNotDegraded(t *testing.T) {
	// A syntax error in the query must surface, not silently degrade
	e, st := newTestEngine(t, &fakeRunner{})
	seedStore(t, st)

	_, err := e.Search(context.Background(), `"unterminated`, Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeInvalidQuery))
}

func TestSearchLimit(t *testing.T) {
	matches := make([]ripgrep.FileMatch, 30)
	for i := range matches {
		matches[i] = ripgrep.FileMatch{Path: "f" + string(rune('a'+i%26)) + ".md", Count: i + 1}
	}
	e, st := newTestEngine(t, &fakeRunner{matches: matches})
	seedStore(t, st)

	resp, err := e.Search(context.Background(), "install", Options{Limit: 5})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 5)
}
