// Package indexer runs the change-detection indexing pass: scan the
// ordered root set, diff digests against the store, and apply per-file
// mutations so unchanged files are never re-extracted.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/extract"
	"github.com/quarrysearch/quarry/internal/scanner"
	"github.com/quarrysearch/quarry/internal/store"
)

// Options controls one indexing pass.
type Options struct {
	Roots         []scanner.Root
	ExtraPatterns []string
	MaxFileSize   int64
	Workers       int

	// Force re-extracts every scanned file, ignoring stored digests.
	Force bool
}

// SkippedFile is a file the pass saw but did not index.
type SkippedFile struct {
	Path   string
	Reason string
}

// Report summarizes one indexing pass.
type Report struct {
	Added     int
	Updated   int
	Deleted   int
	Unchanged int
	Skipped   []SkippedFile
	Duration  time.Duration
}

// Total returns the number of files in the index after the pass.
func (r *Report) Total() int {
	return r.Added + r.Updated + r.Unchanged
}

// Indexer owns the single-writer indexing pass.
type Indexer struct {
	store    *store.Store
	scanner  *scanner.Scanner
	registry *extract.Registry
	lock     *fileLock
	log      *slog.Logger

	mu sync.Mutex // in-process single-writer guard
}

// New creates an Indexer. stateDir is the `.quarry` directory holding
// the cross-process lock file; empty disables file locking (tests).
func New(st *store.Store, stateDir string, logger *slog.Logger) (*Indexer, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ix := &Indexer{
		store:    st,
		scanner:  sc,
		registry: extract.NewRegistry(),
		log:      logger,
	}
	if stateDir != "" {
		ix.lock = newFileLock(stateDir)
	}
	return ix, nil
}

// Registry exposes the extractor registry so callers can register
// additional extractors before the first pass.
func (ix *Indexer) Registry() *extract.Registry {
	return ix.registry
}

// Run executes one indexing pass. Concurrent callers are rejected with
// an IndexBusy error rather than queued. The pass is not atomic: each
// file mutation commits independently, and the manifest is written only
// after all mutations, so an interrupted pass leaves a stale manifest
// and the next pass picks up where it left off.
func (ix *Indexer) Run(ctx context.Context, opts Options) (*Report, error) {
	if !ix.mu.TryLock() {
		return nil, qerrors.IndexBusy("an indexing pass is already running in this process")
	}
	defer ix.mu.Unlock()

	if ix.lock != nil {
		acquired, err := ix.lock.TryLock()
		if err != nil {
			return nil, qerrors.New(qerrors.ErrCodeIndexFailed, "failed to acquire index lock", err)
		}
		if !acquired {
			return nil, qerrors.IndexBusy("an indexing pass is running in another process")
		}
		defer func() { _ = ix.lock.Unlock() }()
	}

	start := time.Now()
	runID, err := ix.store.BeginRun(ctx)
	if err != nil {
		return nil, err
	}

	report, err := ix.pass(ctx, opts)
	if err != nil {
		if failErr := ix.store.FailRun(ctx, runID, err.Error()); failErr != nil {
			ix.log.Error("run_finalization_failed", slog.String("error", failErr.Error()))
		}
		if qerrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, qerrors.New(qerrors.ErrCodeIndexFailed, "indexing pass failed", err)
	}

	report.Duration = time.Since(start)

	stats, err := ix.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if err := ix.store.CompleteRun(ctx, runID, stats.FileCount, stats.TotalBytes); err != nil {
		return nil, err
	}

	ix.log.Info("index_pass_complete",
		slog.Int("added", report.Added),
		slog.Int("updated", report.Updated),
		slog.Int("deleted", report.Deleted),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// pass performs the scan, diff, and mutations.
func (ix *Indexer) pass(ctx context.Context, opts Options) (*Report, error) {
	current, scanSkipped, err := ix.scanner.ScanAll(ctx, &scanner.Options{
		Roots:         opts.Roots,
		ExtraPatterns: opts.ExtraPatterns,
		MaxFileSize:   opts.MaxFileSize,
		Workers:       opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	stored, err := ix.store.AllDigests(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, sk := range scanSkipped {
		report.Skipped = append(report.Skipped, SkippedFile{Path: sk.Path, Reason: sk.Reason})
	}

	// Deletions: indexed paths the scan no longer sees
	for p := range stored {
		if _, ok := current[p]; !ok {
			if err := ix.store.Delete(ctx, p); err != nil {
				return nil, err
			}
			report.Deleted++
		}
	}

	// Deterministic mutation order
	paths := make([]string, 0, len(current))
	for p := range current {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := time.Now()
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fi := current[p]
		oldDigest, known := stored[p]
		if known && oldDigest == fi.Digest && !opts.Force {
			report.Unchanged++
			continue
		}

		res := ix.registry.Extract(fi.AbsPath, fi.Type)
		if res.Skipped {
			// A skipped update leaves the stale record in place
			report.Skipped = append(report.Skipped, SkippedFile{Path: p, Reason: res.Reason})
			ix.log.Warn("extraction_skipped",
				slog.String("path", p),
				slog.String("reason", res.Reason))
			continue
		}

		rec := &store.FileRecord{
			Path:       p,
			Filename:   path.Base(p),
			FileType:   fi.Type,
			Content:    res.Text,
			Digest:     fi.Digest,
			Size:       fi.Size,
			ModifiedAt: fi.ModTime,
			IndexedAt:  now,
		}
		if err := ix.store.Upsert(ctx, rec); err != nil {
			return nil, err
		}

		if known {
			report.Updated++
		} else {
			report.Added++
		}
	}

	if err := ix.finalize(ctx, opts, now); err != nil {
		return nil, err
	}

	return report, nil
}

// finalize writes the manifest from the post-mutation digest set and
// refreshes per-source counts.
func (ix *Indexer) finalize(ctx context.Context, opts Options, at time.Time) error {
	digests, err := ix.store.AllDigests(ctx)
	if err != nil {
		return err
	}

	if err := ix.store.WriteManifest(ctx, &store.Manifest{
		LastIndexedAt:   at,
		TotalFiles:      len(digests),
		AggregateDigest: AggregateDigest(digests),
	}); err != nil {
		return err
	}

	for _, root := range opts.Roots {
		if root.Alias == "" {
			continue
		}
		prefix := root.Alias + "/"
		count := 0
		for p := range digests {
			if strings.HasPrefix(p, prefix) {
				count++
			}
		}
		if err := ix.store.UpdateSourceCount(ctx, root.Alias, count); err != nil {
			return err
		}
	}
	return nil
}

// AggregateDigest derives the order-independent tree digest: the
// per-file digests are sorted, concatenated, and hashed, truncated to
// the same 16-char prefix as file digests.
func AggregateDigest(digests map[string]string) string {
	values := make([]string, 0, len(digests))
	for _, d := range digests {
		values = append(values, d)
	}
	sort.Strings(values)

	h := sha256.Sum256([]byte(strings.Join(values, "")))
	return hex.EncodeToString(h[:])[:scanner.DigestLength]
}
