// Package store is the SQLite persistence layer: the files table, its
// FTS5 mirror, the index manifest, run history, and mounted sources.
package store

import "time"

// Run statuses recorded in index_runs.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// FileRecord is one indexed file as stored in the files table.
type FileRecord struct {
	ID         int64
	Path       string // slash-separated index key, unique
	Filename   string
	FileType   string
	Content    string
	Digest     string // hex(sha256)[:16]
	Size       int64
	ModifiedAt time.Time
	IndexedAt  time.Time
}

// Manifest is the singleton summary of the last completed index pass.
// A nil manifest means the tree has never been indexed.
type Manifest struct {
	LastIndexedAt   time.Time
	TotalFiles      int
	AggregateDigest string
}

// Run is one row of the append-only index_runs history.
type Run struct {
	ID          int64
	StartedAt   time.Time
	CompletedAt *time.Time
	FileCount   int
	TotalBytes  int64
	Status      string
	Error       string
}

// Source is one mounted root in the ordered root set.
type Source struct {
	ID        int64
	Alias     string
	Path      string
	Position  int
	FileCount int
	MountedAt time.Time
}

// Hit is one full-text match. Score is the raw FTS5 bm25() value
// (negative, lower is better); normalization happens in the search
// layer.
type Hit struct {
	Path     string
	Filename string
	FileType string
	Snippet  string
	Score    float64
}

// QueryOptions controls FullTextQuery.
type QueryOptions struct {
	Limit    int
	FileType string // restrict to one file type tag, empty for all
}

// Stats summarizes store contents.
type Stats struct {
	FileCount  int
	TotalBytes int64
	TypeCounts map[string]int
}
