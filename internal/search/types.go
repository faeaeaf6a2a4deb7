// Package search runs the dual-source ranked search: the FTS5 content
// index and live ripgrep pattern matches, queried concurrently and
// merged into one ranked list.
package search

import "time"

// Mode selects which sources a search consults.
type Mode string

const (
	// ModeCombined queries both sources and merges (default).
	ModeCombined Mode = "combined"
	// ModeFTS queries only the content index.
	ModeFTS Mode = "fts"
	// ModePattern queries only ripgrep.
	ModePattern Mode = "pattern"
)

// Weights control the merge of normalized source scores.
type Weights struct {
	FTS       float64
	Pattern   float64
	BothBonus float64
}

// DefaultWeights favor index relevance over raw match counts, with a
// bonus for files both sources agree on.
func DefaultWeights() Weights {
	return Weights{FTS: 0.6, Pattern: 0.4, BothBonus: 0.2}
}

// Result is one ranked file in the response.
type Result struct {
	Path     string  `json:"path"`
	Filename string  `json:"filename,omitempty"`
	FileType string  `json:"file_type,omitempty"`
	Score    float64 `json:"score"`

	// Per-source normalized scores; zero when the source had no hit.
	FTSScore     float64 `json:"fts_score"`
	PatternScore float64 `json:"pattern_score"`

	// Raw source values, preserved for debugging and output.
	BM25       float64 `json:"bm25,omitempty"`
	MatchCount int     `json:"match_count,omitempty"`

	FromFTS     bool   `json:"from_fts"`
	FromPattern bool   `json:"from_pattern"`
	Excerpt     string `json:"excerpt,omitempty"`
	FirstLine   int    `json:"first_line,omitempty"`
}

// Response is the full search outcome. No results is a success, and a
// single-source failure degrades the response instead of failing it.
type Response struct {
	Query    string        `json:"query"`
	Mode     Mode          `json:"mode"`
	Results  []Result      `json:"results"`
	Degraded bool          `json:"degraded"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"-"`
}
