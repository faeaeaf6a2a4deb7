package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/ripgrep"
	"github.com/quarrysearch/quarry/internal/scanner"
	"github.com/quarrysearch/quarry/internal/store"
)

// DefaultLimit is the result cap when the caller does not set one.
const DefaultLimit = 20

// DefaultSourceTimeout bounds each source independently, so a hung
// source cannot stall the whole search.
const DefaultSourceTimeout = 10 * time.Second

// Options controls one search.
type Options struct {
	Mode          Mode
	Limit         int
	FileType      string // restrict FTS hits to one type tag
	Roots         []scanner.Root
	Globs         []string // ignore globs forwarded to ripgrep
	SourceTimeout time.Duration
	Weights       *Weights // nil uses DefaultWeights
}

// PatternSearcher is the live pattern-match source. *ripgrep.Runner is
// the production implementation.
type PatternSearcher interface {
	Search(ctx context.Context, pattern string, opts ripgrep.Options) ([]ripgrep.FileMatch, error)
}

// Engine runs dual-source searches.
type Engine struct {
	store  *store.Store
	runner PatternSearcher
	log    *slog.Logger
}

// New creates an Engine.
func New(st *store.Store, runner PatternSearcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, runner: runner, log: logger}
}

// Search queries the selected sources concurrently and merges their
// results. In combined mode one failed source degrades the response
// with a warning; only both failing is an error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeCombined
	}
	switch mode {
	case ModeCombined, ModeFTS, ModePattern:
	default:
		return nil, qerrors.Newf(qerrors.ErrCodeInvalidInput,
			"unknown search mode %q (want combined, fts, or pattern)", mode)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	timeout := opts.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	start := time.Now()

	var (
		ftsHits        []store.Hit
		patternMatches []ripgrep.FileMatch
		ftsErr         error
		patternErr     error
	)

	// Fetch more than the limit from each source: a file ranked low by
	// one source can still surface after merging.
	fetch := limit * 3

	g, gctx := errgroup.WithContext(ctx)

	if mode == ModeCombined || mode == ModeFTS {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			ftsHits, ftsErr = e.store.FullTextQuery(sctx, query, store.QueryOptions{
				Limit:    fetch,
				FileType: opts.FileType,
			})
			if ftsErr != nil && sctx.Err() == context.DeadlineExceeded {
				ftsErr = qerrors.Newf(qerrors.ErrCodeSourceTimeout,
					"content index query exceeded %s", timeout)
			}
			return nil // source failures are handled after the join
		})
	}

	if mode == ModeCombined || mode == ModePattern {
		g.Go(func() error {
			patternMatches, patternErr = e.runner.Search(gctx, query, ripgrep.Options{
				Roots:   opts.Roots,
				Globs:   opts.Globs,
				Timeout: timeout,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A malformed query is the caller's error regardless of mode
	if ftsErr != nil && (qerrors.IsCode(ftsErr, qerrors.ErrCodeInvalidQuery) ||
		qerrors.IsCode(ftsErr, qerrors.ErrCodeQueryEmpty)) {
		return nil, ftsErr
	}

	resp := &Response{Query: query, Mode: mode}

	switch mode {
	case ModeFTS:
		if ftsErr != nil {
			return nil, ftsErr
		}
	case ModePattern:
		if patternErr != nil {
			return nil, patternErr
		}
	default:
		if ftsErr != nil && patternErr != nil {
			return nil, qerrors.BothSourcesFailed(ftsErr, patternErr)
		}
		if ftsErr != nil {
			resp.Degraded = true
			resp.Warnings = append(resp.Warnings,
				fmt.Sprintf("content index unavailable, pattern matches only: %v", ftsErr))
			e.log.Warn("search_degraded",
				slog.String("source", "fts"),
				slog.String("error", ftsErr.Error()))
		}
		if patternErr != nil {
			resp.Degraded = true
			resp.Warnings = append(resp.Warnings,
				fmt.Sprintf("pattern search unavailable, index matches only: %v", patternErr))
			e.log.Warn("search_degraded",
				slog.String("source", "pattern"),
				slog.String("error", patternErr.Error()))
		}
	}

	resp.Results = merge(ftsHits, patternMatches, weights, limit)
	resp.Duration = time.Since(start)

	e.log.Debug("search_complete",
		slog.String("query", query),
		slog.String("mode", string(mode)),
		slog.Int("results", len(resp.Results)),
		slog.Bool("degraded", resp.Degraded),
		slog.Duration("duration", resp.Duration))

	return resp, nil
}
