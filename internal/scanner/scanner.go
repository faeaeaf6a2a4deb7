// Package scanner discovers indexable files across the ordered root set,
// applying ignore rules and computing content digests as it walks.
package scanner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quarrysearch/quarry/internal/extract"
	"github.com/quarrysearch/quarry/internal/ignore"
)

// DigestLength is the hex-prefix length of the content digest.
const DigestLength = 16

// matcherCacheSize bounds the nested ignore-file matcher cache.
const matcherCacheSize = 256

// Scanner discovers indexable files in the configured roots.
type Scanner struct {
	// matcherCache caches parsed nested ignore matchers by directory.
	matcherCache *lru.Cache[string, *ignore.Matcher]
	cacheMu      sync.RWMutex
}

// New creates a new Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *ignore.Matcher](matcherCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ignore matcher cache: %w", err)
	}
	return &Scanner{matcherCache: cache}, nil
}

// Digest returns the content digest of raw file bytes:
// hex(sha256(bytes)) truncated to DigestLength characters.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])[:DigestLength]
}

// DigestFile computes the content digest of the file at path.
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}

// Scan walks all roots in order and streams results on the returned
// channel. The channel is closed when scanning completes or ctx is
// cancelled. Candidate paths are hashed by a small worker pool.
func (s *Scanner) Scan(ctx context.Context, opts *Options) (<-chan ScanResult, error) {
	if opts == nil || len(opts.Roots) == 0 {
		return nil, fmt.Errorf("at least one root is required")
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	roots := make([]Root, 0, len(opts.Roots))
	matchers := make(map[string]*ignore.Matcher, len(opts.Roots))
	for _, r := range opts.Roots {
		absRoot, err := filepath.Abs(r.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", r.Path, err)
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to stat root %s: %w", r.Path, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root is not a directory: %s", absRoot)
		}
		m, err := ignore.Load(absRoot, opts.ExtraPatterns)
		if err != nil {
			return nil, err
		}
		roots = append(roots, Root{Path: absRoot, Alias: r.Alias})
		matchers[absRoot] = m
	}

	results := make(chan ScanResult, workers*8)
	candidates := make(chan *FileInfo, workers*8)

	go func() {
		defer close(results)

		g, gctx := errgroup.WithContext(ctx)

		// Digest workers: read, binary-sniff, and hash candidates.
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				for fi := range candidates {
					res := s.digestCandidate(fi)
					select {
					case results <- res:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}

		g.Go(func() error {
			defer close(candidates)
			for _, root := range roots {
				if err := s.walkRoot(gctx, root, matchers[root.Path], opts.FollowSymlinks, maxFileSize, candidates, results); err != nil {
					return err
				}
			}
			return nil
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			results <- ScanResult{Err: err}
		}
	}()

	return results, nil
}

// ScanAll collects a full scan into a digest map plus the skip list.
// This is the form the change-detection diff consumes.
func (s *Scanner) ScanAll(ctx context.Context, opts *Options) (map[string]*FileInfo, []Skipped, error) {
	ch, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	files := make(map[string]*FileInfo)
	var skipped []Skipped
	for res := range ch {
		switch {
		case res.Err != nil:
			return nil, nil, res.Err
		case res.Skipped != nil:
			skipped = append(skipped, *res.Skipped)
		case res.File != nil:
			files[res.File.Path] = res.File
		}
	}
	return files, skipped, nil
}

// walkRoot traverses one root, pushing candidates for digesting and
// reporting oversize files as skips.
func (s *Scanner) walkRoot(ctx context.Context, root Root, matcher *ignore.Matcher, followSymlinks bool, maxFileSize int64, candidates chan<- *FileInfo, results chan<- ScanResult) error {
	return filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		relPath, err := filepath.Rel(root.Path, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if matcher.Match(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		isSymlink := d.Type()&fs.ModeSymlink != 0
		if isSymlink && !followSymlinks {
			return nil
		}

		if matcher.Match(relPath, false) {
			return nil
		}

		// Nested ignore files apply below their own directory
		if s.matchesNested(root.Path, relPath) {
			return nil
		}

		var info fs.FileInfo
		if isSymlink {
			// Stat the target so size and mtime reflect the content
			info, err = os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else {
			info, err = d.Info()
			if err != nil {
				return nil
			}
		}

		key := relPath
		if root.Alias != "" {
			key = root.Alias + "/" + relPath
		}

		if info.Size() > maxFileSize {
			select {
			case results <- ScanResult{Skipped: &Skipped{Path: key, Reason: fmt.Sprintf("file too large (%d bytes)", info.Size())}}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}

		fi := &FileInfo{
			Path:    key,
			AbsPath: path,
			Type:    extract.DetectType(relPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case candidates <- fi:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

// digestCandidate reads the candidate and fills in its digest, or turns
// it into a skip when the content is binary or unreadable.
func (s *Scanner) digestCandidate(fi *FileInfo) ScanResult {
	data, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		return ScanResult{Skipped: &Skipped{Path: fi.Path, Reason: fmt.Sprintf("unreadable: %v", err)}}
	}

	if isBinary(data) {
		return ScanResult{Skipped: &Skipped{Path: fi.Path, Reason: "binary content"}}
	}

	fi.Digest = Digest(data)
	return ScanResult{File: fi}
}

// isBinary sniffs the first 512 bytes for null bytes.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// matchesNested checks ignore files in the directories between the root
// and the file. Matchers are cached per directory.
func (s *Scanner) matchesNested(absRoot, relPath string) bool {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}

	parts := splitPath(dir)
	currentDir := absRoot
	currentBase := ""

	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}

		matcher := s.nestedMatcher(currentDir, currentBase)
		if matcher != nil && matcher.Match(relPath, false) {
			return true
		}
	}

	return false
}

// nestedMatcher gets or creates the matcher for a nested ignore file.
func (s *Scanner) nestedMatcher(dir, base string) *ignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.matcherCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	path := filepath.Join(dir, ignore.IgnoreFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	matcher = ignore.NewEmpty()
	if err := matcher.AddFromFile(path, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.matcherCache.Add(dir, matcher)
	s.cacheMu.Unlock()

	return matcher
}

// InvalidateCache clears the nested matcher cache. Call when ignore
// files change between passes.
func (s *Scanner) InvalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.matcherCache.Purge()
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(p), "/")
}
