package search

import (
	"math"
	"sort"

	"github.com/quarrysearch/quarry/internal/ripgrep"
	"github.com/quarrysearch/quarry/internal/store"
)

// patternSaturation is the match count at which the pattern score
// reaches 1.0; more matches in one file do not mean more relevance.
const patternSaturation = 10

// normalizeBM25 maps a raw FTS5 bm25() value (negative, lower is
// better) into (0, 1].
func normalizeBM25(raw float64) float64 {
	return 1.0 / (1.0 + math.Abs(raw))
}

// normalizePattern maps a per-file match count into (0, 1].
func normalizePattern(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(1.0, float64(count)/patternSaturation)
}

// merge combines the two source result sets into one ranked list.
// Each path appears once: combined = w.FTS*fts + w.Pattern*pattern,
// plus the both-sources bonus, capped at 1.0. Ties break on path so
// the ordering is deterministic.
func merge(ftsHits []store.Hit, patternMatches []ripgrep.FileMatch, w Weights, limit int) []Result {
	byPath := make(map[string]*Result, len(ftsHits)+len(patternMatches))

	for _, h := range ftsHits {
		byPath[h.Path] = &Result{
			Path:     h.Path,
			Filename: h.Filename,
			FileType: h.FileType,
			FTSScore: normalizeBM25(h.Score),
			BM25:     h.Score,
			FromFTS:  true,
			Excerpt:  h.Snippet,
		}
	}

	for _, m := range patternMatches {
		r, ok := byPath[m.Path]
		if !ok {
			r = &Result{Path: m.Path}
			byPath[m.Path] = r
		}
		r.PatternScore = normalizePattern(m.Count)
		r.MatchCount = m.Count
		r.FromPattern = true
		r.FirstLine = m.FirstLine
		if r.Excerpt == "" {
			r.Excerpt = m.Snippet
		}
	}

	results := make([]Result, 0, len(byPath))
	for _, r := range byPath {
		score := w.FTS*r.FTSScore + w.Pattern*r.PatternScore
		if r.FromFTS && r.FromPattern {
			score += w.BothBonus
		}
		r.Score = math.Min(1.0, score)
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
