// Package extract is the extraction gateway: given a file path and a
// detected type tag, produce indexable text or a typed skip.
//
// Extractors are registered per type tag. Unknown tags map to "no
// extraction, skip" rather than an error, and a single file's failure
// never aborts an indexing pass; callers collect Results into a
// pass-level report.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Result is the per-file outcome of an extraction attempt.
// Exactly one of Text or Reason is meaningful: a skipped Result carries
// the reason, a successful one carries the text.
type Result struct {
	Text    string
	Skipped bool
	Reason  string
}

// Ok returns a successful extraction result.
func Ok(text string) Result {
	return Result{Text: text}
}

// Skip returns a skipped-with-reason result.
func Skip(reason string) Result {
	return Result{Skipped: true, Reason: reason}
}

// Skipf returns a skipped result with a formatted reason.
func Skipf(format string, args ...any) Result {
	return Skip(fmt.Sprintf(format, args...))
}

// Extractor produces text from a file, or an error when the file cannot
// be read or decoded. Errors are converted to skips by the Registry.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(path string) (string, error) {
	return f(path)
}

// Registry dispatches extraction by detected type tag.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in plain-text extractor
// registered for all text-like type tags.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	text := ExtractorFunc(extractTextFile)
	for tag := range textTypeTags {
		r.Register(tag, text)
	}
	return r
}

// Register binds an extractor to a type tag, replacing any existing one.
func (r *Registry) Register(tag string, e Extractor) {
	r.extractors[tag] = e
}

// Supports reports whether an extractor is registered for the tag.
func (r *Registry) Supports(tag string) bool {
	_, ok := r.extractors[tag]
	return ok
}

// Extract runs the extractor registered for fileType against path.
// Unknown types and extractor errors become skips, never errors.
func (r *Registry) Extract(path, fileType string) Result {
	e, ok := r.extractors[fileType]
	if !ok {
		return Skipf("no extractor for type %q", fileType)
	}

	text, err := e.Extract(path)
	if err != nil {
		return Skipf("extraction failed: %v", err)
	}
	return Ok(text)
}

// typeByExtension maps file extensions to type tags.
var typeByExtension = map[string]string{
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "text",
	".rst":      "text",
	".org":      "text",
	".go":       "go",
	".py":       "python",
	".sh":       "shell",
	".json":     "json",
	".yaml":     "yaml",
	".yml":      "yaml",
	".toml":     "toml",
	".html":     "html",
	".css":      "css",
	".js":       "javascript",
	".ts":       "typescript",
}

// textTypeTags are the tags served by the plain-text extractor.
var textTypeTags = map[string]struct{}{
	"markdown":   {},
	"text":       {},
	"go":         {},
	"python":     {},
	"shell":      {},
	"json":       {},
	"yaml":       {},
	"toml":       {},
	"html":       {},
	"css":        {},
	"javascript": {},
	"typescript": {},
}

// DetectType determines the type tag for a path from its extension.
// Unmapped extensions yield "unknown".
func DetectType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if tag, ok := typeByExtension[ext]; ok {
		return tag
	}
	return "unknown"
}

// extractTextFile reads a file as UTF-8 text. Content with null bytes is
// rejected as binary; invalid UTF-8 sequences are replaced rather than
// failing the file.
func extractTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if bytes.ContainsRune(data, 0) {
		return "", fmt.Errorf("binary content")
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}
