package scanner

import "time"

// DefaultMaxFileSize is the largest file the scanner will consider (10MB).
// Anything larger is reported as skipped before extraction is attempted.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Root is one directory in the ordered set of indexed roots.
// The first root conventionally has an empty alias; files under aliased
// roots are keyed as "alias/relative/path" so paths stay unique across
// roots.
type Root struct {
	Path  string
	Alias string
}

// FileInfo describes a single indexable file discovered by a scan.
type FileInfo struct {
	// Path is the index key: the root-relative path, prefixed with the
	// root's alias when one is set. Always slash-separated.
	Path string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	// Type is the detected type tag (markdown, go, text, ...).
	Type string

	// Digest is the content digest: hex(sha256(bytes)) truncated to 16
	// characters. Change detection only, not security-sensitive.
	Digest string

	Size    int64
	ModTime time.Time
}

// Skipped describes a file the scanner saw but could not process.
type Skipped struct {
	Path   string
	Reason string
}

// ScanResult streams either a discovered file, a skip, or a walk error.
type ScanResult struct {
	File    *FileInfo
	Skipped *Skipped
	Err     error
}

// Options configures a scan.
type Options struct {
	// Roots is the ordered set of directories to scan.
	Roots []Root

	// ExtraPatterns are ignore patterns applied on top of the built-in
	// defaults and each root's ignore file.
	ExtraPatterns []string

	// MaxFileSize bounds file size; zero means DefaultMaxFileSize.
	MaxFileSize int64

	// Workers is the digest worker count; zero means GOMAXPROCS.
	Workers int

	// FollowSymlinks enables following symbolic links (default off).
	FollowSymlinks bool
}
