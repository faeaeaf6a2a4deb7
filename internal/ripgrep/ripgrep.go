// Package ripgrep wraps the rg binary as the live pattern-match source.
// Searches run as bounded subprocesses: they are killed on timeout or
// cancellation rather than left to finish in the background.
package ripgrep

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/scanner"
)

// DefaultTimeout bounds one rg invocation.
const DefaultTimeout = 10 * time.Second

// maxCountPerFile caps matches per file; counts beyond this do not
// change the normalized pattern score anyway.
const maxCountPerFile = 50

// FileMatch aggregates the rg matches within one file.
type FileMatch struct {
	Path      string // index key (alias-prefixed, slash-separated)
	Count     int
	FirstLine int    // line number of the first match
	Snippet   string // text of the first matching line, trimmed
}

// Options controls one pattern search.
type Options struct {
	Roots         []scanner.Root
	Globs         []string // rg -g patterns, e.g. "!node_modules/**"
	Timeout       time.Duration
	CaseSensitive bool
}

// Runner spawns rg subprocesses.
type Runner struct {
	log *slog.Logger

	// For testing: override command execution
	lookPath    func(file string) (string, error)
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		log:         logger,
		lookPath:    exec.LookPath,
		execCommand: exec.CommandContext,
	}
}

// Available reports whether the rg binary is on PATH.
func (r *Runner) Available() bool {
	_, err := r.lookPath("rg")
	return err == nil
}

// Search runs rg over the roots and aggregates matches per file. No
// matches is a success with an empty slice. The subprocess is killed
// when the deadline passes or ctx is cancelled.
func (r *Runner) Search(ctx context.Context, pattern string, opts Options) ([]FileMatch, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "search pattern is empty", nil)
	}
	if len(opts.Roots) == 0 {
		return nil, qerrors.New(qerrors.ErrCodeInvalidInput, "at least one root is required", nil)
	}

	binary, err := r.lookPath("rg")
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeSourceUnavailable,
			"ripgrep (rg) not found on PATH", err).
			WithSuggestion("install ripgrep to enable pattern search, or use --mode fts")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--json", "--max-count", fmt.Sprint(maxCountPerFile)}
	if !opts.CaseSensitive {
		args = append(args, "--smart-case")
	}
	for _, g := range opts.Globs {
		args = append(args, "-g", g)
	}
	args = append(args, "--", pattern)

	roots := make([]scanner.Root, 0, len(opts.Roots))
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root.Path)
		if err != nil {
			return nil, qerrors.Newf(qerrors.ErrCodeInvalidPath, "cannot resolve root %s", root.Path)
		}
		roots = append(roots, scanner.Root{Path: abs, Alias: root.Alias})
		args = append(args, abs)
	}

	cmd := r.execCommand(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, qerrors.Newf(qerrors.ErrCodeSourceTimeout,
			"pattern search exceeded %s and was killed", timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if runErr != nil {
		// rg exits 1 for "no matches", which is a valid empty result
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
			return []FileMatch{}, nil
		}
		return nil, qerrors.New(qerrors.ErrCodeSourceUnavailable,
			fmt.Sprintf("ripgrep failed: %s", strings.TrimSpace(stderr.String())), runErr)
	}

	matches, err := parseMatches(&stdout, roots)
	if err != nil {
		return nil, err
	}

	r.log.Debug("pattern_search_complete",
		slog.String("pattern", pattern),
		slog.Int("files", len(matches)),
		slog.Duration("duration", time.Since(start)))

	return matches, nil
}

// rgEvent is one line of rg --json output. Only match events carry the
// fields we read.
type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
	} `json:"data"`
}

// parseMatches folds the rg event stream into per-file aggregates keyed
// by index path.
func parseMatches(output *bytes.Buffer, roots []scanner.Root) ([]FileMatch, error) {
	byPath := make(map[string]*FileMatch)

	sc := bufio.NewScanner(output)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev rgEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // Non-JSON noise on stdout
		}
		if ev.Type != "match" {
			continue
		}

		key, ok := indexKey(ev.Data.Path.Text, roots)
		if !ok {
			continue
		}

		m, exists := byPath[key]
		if !exists {
			m = &FileMatch{
				Path:      key,
				FirstLine: ev.Data.LineNumber,
				Snippet:   strings.TrimSpace(ev.Data.Lines.Text),
			}
			byPath[key] = m
		}
		m.Count++
	}
	if err := sc.Err(); err != nil {
		return nil, qerrors.New(qerrors.ErrCodeSourceUnavailable, "failed to read ripgrep output", err)
	}

	matches := make([]FileMatch, 0, len(byPath))
	for _, m := range byPath {
		matches = append(matches, *m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

// indexKey maps an absolute rg path back to the alias-prefixed index
// key used by the store.
func indexKey(absPath string, roots []scanner.Root) (string, bool) {
	absPath = filepath.ToSlash(absPath)
	for _, root := range roots {
		prefix := filepath.ToSlash(root.Path)
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if rel, ok := strings.CutPrefix(absPath, prefix); ok {
			if root.Alias != "" {
				return root.Alias + "/" + rel, true
			}
			return rel, true
		}
	}
	return "", false
}
