package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	qerrors "github.com/quarrysearch/quarry/internal/errors"
)

// DefaultDBName is the database filename under the state directory.
const DefaultDBName = "index.db"

// schemaVersion is bumped on any incompatible schema change.
const schemaVersion = 1

// Store wraps a single SQLite connection in WAL mode.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Options controls Open behavior.
type Options struct {
	// Recreate drops a corrupt database instead of failing. Only set
	// when the user explicitly consented (--recreate).
	Recreate bool
}

// validateIntegrity checks an existing database before opening it for
// real. Returns nil when the file is absent (it will be created).
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	// A well-formed file without the FTS mirror is still unusable
	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type='table' AND name='files_fts'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'files_fts' missing")
	}

	return nil
}

// Open opens (or creates) the database at path. A corrupt database is
// an error unless opts.Recreate is set, in which case it is removed and
// rebuilt empty.
func Open(path string, opts Options) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("failed to create state directory %s", dir), err)
	}

	if validErr := validateIntegrity(path); validErr != nil {
		if !opts.Recreate {
			return nil, qerrors.New(qerrors.ErrCodeStoreCorrupt, fmt.Sprintf("index database at %s failed validation", path), validErr).
				WithSuggestion("run 'quarry index --recreate' to rebuild the index")
		}

		slog.Warn("store_recreating",
			slog.String("path", path),
			slog.String("reason", validErr.Error()))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("cannot remove corrupt database at %s", path), err)
		}
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	}

	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to open index database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to initialize schema", err)
	}

	return s, nil
}

// OpenMemory opens an in-memory store for testing.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to open in-memory database", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to initialize schema", err)
	}
	return s, nil
}

// initSchema creates the tables, the FTS5 mirror, and the triggers that
// keep the mirror consistent with the files table.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS files (
		file_id     INTEGER PRIMARY KEY,
		path        TEXT UNIQUE NOT NULL,
		filename    TEXT NOT NULL,
		file_type   TEXT NOT NULL,
		content     TEXT NOT NULL,
		digest      TEXT NOT NULL,
		size        INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		indexed_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_type ON files(file_type);

	-- External-content FTS mirror over the files table. Never written
	-- directly: the triggers below are its only writers.
	CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
		path, filename, content,
		content='files',
		content_rowid='file_id',
		tokenize='porter unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
		INSERT INTO files_fts(rowid, path, filename, content)
		VALUES (new.file_id, new.path, new.filename, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
		INSERT INTO files_fts(files_fts, rowid, path, filename, content)
		VALUES ('delete', old.file_id, old.path, old.filename, old.content);
	END;

	CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE ON files BEGIN
		INSERT INTO files_fts(files_fts, rowid, path, filename, content)
		VALUES ('delete', old.file_id, old.path, old.filename, old.content);
		INSERT INTO files_fts(rowid, path, filename, content)
		VALUES (new.file_id, new.path, new.filename, new.content);
	END;

	CREATE TABLE IF NOT EXISTS manifest (
		id               INTEGER PRIMARY KEY CHECK (id = 1),
		last_indexed_at  INTEGER NOT NULL,
		total_files      INTEGER NOT NULL,
		aggregate_digest TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS index_runs (
		run_id       INTEGER PRIMARY KEY,
		started_at   INTEGER NOT NULL,
		completed_at INTEGER,
		file_count   INTEGER NOT NULL DEFAULT 0,
		total_bytes  INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL DEFAULT 'running',
		error        TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sources (
		source_id  INTEGER PRIMARY KEY,
		alias      TEXT UNIQUE NOT NULL,
		path       TEXT NOT NULL,
		position   INTEGER NOT NULL,
		file_count INTEGER NOT NULL DEFAULT 0,
		mounted_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

// Upsert inserts or replaces the record keyed by its Path. The FTS
// mirror is maintained by triggers inside the same transaction.
func (s *Store) Upsert(ctx context.Context, rec *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// UPDATE-then-INSERT rather than INSERT OR REPLACE so the FTS
	// update trigger fires with the old content for the delete leg.
	res, err := tx.ExecContext(ctx, `
		UPDATE files
		SET filename = ?, file_type = ?, content = ?, digest = ?,
		    size = ?, modified_at = ?, indexed_at = ?
		WHERE path = ?`,
		rec.Filename, rec.FileType, rec.Content, rec.Digest,
		rec.Size, rec.ModifiedAt.Unix(), rec.IndexedAt.Unix(), rec.Path)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("failed to update %s", rec.Path), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read rows affected", err)
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (path, filename, file_type, content, digest, size, modified_at, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Path, rec.Filename, rec.FileType, rec.Content, rec.Digest,
			rec.Size, rec.ModifiedAt.Unix(), rec.IndexedAt.Unix()); err != nil {
			return qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("failed to insert %s", rec.Path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to commit", err)
	}
	return nil
}

// Delete removes the record at path. Deleting an absent path is a
// no-op, not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("failed to delete %s", path), err)
	}
	return nil
}

// GetByPath returns the record at path, or a RecordNotFound error.
func (s *Store) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	var rec FileRecord
	var modAt, idxAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT file_id, path, filename, file_type, content, digest, size, modified_at, indexed_at
		FROM files WHERE path = ?`, path).Scan(
		&rec.ID, &rec.Path, &rec.Filename, &rec.FileType, &rec.Content,
		&rec.Digest, &rec.Size, &modAt, &idxAt)
	if err == sql.ErrNoRows {
		return nil, qerrors.Newf(qerrors.ErrCodeRecordNotFound, "no indexed file at %s", path)
	}
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, fmt.Sprintf("failed to read %s", path), err)
	}

	rec.ModifiedAt = time.Unix(modAt, 0)
	rec.IndexedAt = time.Unix(idxAt, 0)
	return &rec, nil
}

// AllDigests returns the path → digest map for the whole index. This is
// the stored side of the change-detection diff.
func (s *Store) AllDigests(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, digest FROM files`)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to query digests", err)
	}
	defer rows.Close()

	digests := make(map[string]string)
	for rows.Next() {
		var path, digest string
		if err := rows.Scan(&path, &digest); err != nil {
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to scan digest row", err)
		}
		digests[path] = digest
	}
	return digests, rows.Err()
}

// FullTextQuery runs an FTS5 MATCH over path, filename, and content.
// Results carry raw bm25() scores and a snippet from the content
// column. A malformed query surfaces as an InvalidQuery error.
func (s *Store) FullTextQuery(ctx context.Context, query string, opts QueryOptions) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	if strings.TrimSpace(query) == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := `
		SELECT f.path, f.filename, f.file_type,
		       snippet(files_fts, 2, '>>', '<<', '…', 12) AS excerpt,
		       bm25(files_fts) AS score
		FROM files_fts
		JOIN files f ON f.file_id = files_fts.rowid
		WHERE files_fts MATCH ?`
	args := []any{query}

	if opts.FileType != "" {
		sqlQuery += ` AND f.file_type = ?`
		args = append(args, opts.FileType)
	}

	sqlQuery += ` ORDER BY score LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if isFTSSyntaxError(err) {
			return nil, qerrors.New(qerrors.ErrCodeInvalidQuery, fmt.Sprintf("malformed search query: %s", query), err).
				WithSuggestion("quote phrases and balance parentheses in FTS queries")
		}
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "full-text query failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.Filename, &h.FileType, &h.Snippet, &h.Score); err != nil {
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to scan hit", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// isFTSSyntaxError distinguishes a malformed MATCH expression from real
// store failures.
func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") ||
		strings.Contains(msg, "unknown special query") ||
		strings.Contains(msg, "malformed MATCH expression") ||
		strings.Contains(msg, "unterminated string")
}

// ReadManifest returns the manifest, or nil when the tree has never
// been indexed.
func (s *Store) ReadManifest(ctx context.Context) (*Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	var m Manifest
	var at int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_indexed_at, total_files, aggregate_digest
		FROM manifest WHERE id = 1`).Scan(&at, &m.TotalFiles, &m.AggregateDigest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read manifest", err)
	}

	m.LastIndexedAt = time.Unix(at, 0)
	return &m, nil
}

// WriteManifest replaces the singleton manifest row.
func (s *Store) WriteManifest(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manifest (id, last_indexed_at, total_files, aggregate_digest)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_indexed_at = excluded.last_indexed_at,
			total_files = excluded.total_files,
			aggregate_digest = excluded.aggregate_digest`,
		m.LastIndexedAt.Unix(), m.TotalFiles, m.AggregateDigest)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to write manifest", err)
	}
	return nil
}

// BeginRun appends a running row to index_runs and returns its id.
func (s *Store) BeginRun(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO index_runs (started_at, status) VALUES (?, ?)`,
		time.Now().Unix(), RunStatusRunning)
	if err != nil {
		return 0, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to record run start", err)
	}
	return res.LastInsertId()
}

// CompleteRun marks a run finished with its totals.
func (s *Store) CompleteRun(ctx context.Context, runID int64, fileCount int, totalBytes int64) error {
	return s.finishRun(ctx, runID, RunStatusCompleted, fileCount, totalBytes, "")
}

// FailRun marks a run failed with the failure reason.
func (s *Store) FailRun(ctx context.Context, runID int64, reason string) error {
	return s.finishRun(ctx, runID, RunStatusFailed, 0, 0, reason)
}

func (s *Store) finishRun(ctx context.Context, runID int64, status string, fileCount int, totalBytes int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE index_runs
		SET completed_at = ?, status = ?, file_count = ?, total_bytes = ?, error = ?
		WHERE run_id = ?`,
		time.Now().Unix(), status, fileCount, totalBytes, reason, runID)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to finalize run", err)
	}
	return nil
}

// LastRun returns the most recent run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	var r Run
	var started int64
	var completed sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, completed_at, file_count, total_bytes, status, error
		FROM index_runs ORDER BY run_id DESC LIMIT 1`).Scan(
		&r.ID, &started, &completed, &r.FileCount, &r.TotalBytes, &r.Status, &r.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read run history", err)
	}

	r.StartedAt = time.Unix(started, 0)
	if completed.Valid {
		t := time.Unix(completed.Int64, 0)
		r.CompletedAt = &t
	}
	return &r, nil
}

// AddSource mounts a root at the end of the ordered root set. A
// duplicate alias is an invalid-input error.
func (s *Store) AddSource(ctx context.Context, alias, path string) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	var position int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM sources`).Scan(&position); err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read source positions", err)
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (alias, path, position, mounted_at)
		VALUES (?, ?, ?, ?)`,
		alias, path, position, now.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, qerrors.Newf(qerrors.ErrCodeInvalidInput,
				"source alias %q is already mounted", alias)
		}
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to mount source", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read source id", err)
	}
	return &Source{ID: id, Alias: alias, Path: path, Position: position, MountedAt: now}, nil
}

// RemoveSource unmounts the root by alias and drops its indexed files.
func (s *Store) RemoveSource(ctx context.Context, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE alias = ?`, alias)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to unmount source", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read rows affected", err)
	}
	if n == 0 {
		return qerrors.Newf(qerrors.ErrCodeRecordNotFound, "no mounted source %q", alias)
	}

	// Indexed entries from this source carry the alias prefix
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE path LIKE ? ESCAPE '\'`,
		escapeLike(alias)+"/%"); err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to drop source files", err)
	}

	if err := tx.Commit(); err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to commit", err)
	}
	return nil
}

// ListSources returns mounted roots in mount order.
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, alias, path, position, file_count, mounted_at
		FROM sources ORDER BY position`)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to list sources", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var mounted int64
		if err := rows.Scan(&src.ID, &src.Alias, &src.Path, &src.Position, &src.FileCount, &mounted); err != nil {
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to scan source", err)
		}
		src.MountedAt = time.Unix(mounted, 0)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpdateSourceCount records how many files a pass indexed from a source.
func (s *Store) UpdateSourceCount(ctx context.Context, alias string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET file_count = ? WHERE alias = ?`, count, alias)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to update source count", err)
	}
	return nil
}

// Stats returns size and per-type counts for the whole index.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "store is closed", nil)
	}

	stats := &Stats{TypeCounts: make(map[string]int)}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&stats.FileCount, &stats.TotalBytes)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read stats", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_type, COUNT(*) FROM files GROUP BY file_type`)
	if err != nil {
		return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to read type counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ft string
		var n int
		if err := rows.Scan(&ft, &n); err != nil {
			return nil, qerrors.New(qerrors.ErrCodeStoreUnavailable, "failed to scan type count", err)
		}
		stats.TypeCounts[ft] = n
	}
	return stats, rows.Err()
}

// Close checkpoints the WAL and closes the connection. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path (empty for in-memory stores).
func (s *Store) Path() string {
	return s.path
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
