// Package ignore provides gitignore-style pattern matching for index
// exclusions. It implements the pattern syntax documented at:
// https://git-scm.com/docs/gitignore
//
// Patterns come from three layers, all active at once: built-in defaults,
// the root .quarryignore file, and per-call extra patterns.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// IgnoreFileName is the per-tree ignore file read from each root.
const IgnoreFileName = ".quarryignore"

// DefaultPatterns are always excluded, even when no ignore file exists:
// version-control directories, common dependency/build directories, and
// Quarry's own state directory.
var DefaultPatterns = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"__pycache__/",
	"dist/",
	"build/",
	"target/",
	".quarry/",
	"*.pyc",
	"*.db",
	"*.db-journal",
	"*.db-wal",
	"*.db-shm",
	".DS_Store",
}

// Matcher holds compiled ignore patterns and provides thread-safe matching.
type Matcher struct {
	rules []rule
	mu    sync.RWMutex
}

// rule represents a single compiled ignore pattern.
type rule struct {
	pattern  string         // original pattern
	regex    *regexp.Regexp // compiled regex
	negation bool           // starts with !
	dirOnly  bool           // ends with /
	anchored bool           // contains / or starts with /
	base     string         // base directory (for nested ignore files)
}

// New creates a Matcher preloaded with the built-in default patterns.
func New() *Matcher {
	m := NewEmpty()
	for _, p := range DefaultPatterns {
		m.AddPattern(p)
	}
	return m
}

// NewEmpty creates a Matcher with no patterns at all.
func NewEmpty() *Matcher {
	return &Matcher{rules: make([]rule, 0)}
}

// Patterns returns the original pattern strings in order of addition.
func (m *Matcher) Patterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.pattern)
	}
	return out
}

// AddPattern adds an ignore pattern to the matcher.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies under the given base directory.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	pattern = strings.TrimSpace(pattern)

	// Skip empty lines and comments
	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return
	}

	r := rule{
		pattern: pattern,
		base:    base,
	}

	// Handle escaped leading # or !
	if strings.HasPrefix(pattern, `\#`) || strings.HasPrefix(pattern, `\!`) {
		pattern = strings.TrimPrefix(pattern, `\`)
		r.pattern = pattern
	} else if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	// Directory-only pattern (trailing / means "exclude subtree")
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// Anchored pattern (leading /)
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	// Pattern with internal / is also anchored: "doc/frotz" means
	// "/doc/frotz", not "**/doc/frotz".
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "*") {
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + patternToRegex(pattern) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile reads patterns from an ignore file.
// A missing file is not an error; defaults still apply.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ignore file: %w", err)
	}

	return nil
}

// Load builds the effective matcher for a root directory: built-in
// defaults, the root's ignore file (if present), and extra patterns.
func Load(root string, extra []string) (*Matcher, error) {
	m := New()
	if err := m.AddFromFile(filepath.Join(root, IgnoreFileName), ""); err != nil {
		return nil, err
	}
	for _, p := range extra {
		m.AddPattern(p)
	}
	return m, nil
}

// Match checks if a path matches any ignore pattern.
// Returns true if the path should be ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false

	for _, r := range m.rules {
		if m.matchRule(path, isDir, r) {
			ignored = !r.negation
		}
	}

	return ignored
}

// matchRule checks if a path matches a single rule.
// Directory-only patterns (ending with /) also match files inside that
// directory: for pattern "temp/", path "temp/file.go" matches.
func (m *Matcher) matchRule(path string, isDir bool, r rule) bool {
	// If rule has a base, only match paths under that base
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") && path != r.base {
			return false
		}
		if path == r.base {
			path = filepath.Base(path)
		} else {
			path = strings.TrimPrefix(path, r.base+"/")
		}
	}

	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		// Files inside an anchored ignored directory
		if r.dirOnly {
			for i := range parts[:len(parts)-1] {
				checkPath := strings.Join(parts[:i+1], "/")
				if r.regex.MatchString(checkPath) {
					return true
				}
			}
		}
		return false
	}

	// "temp/" matches a temp dir anywhere and everything inside it
	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) {
		return true
	}

	if r.regex.MatchString(path) {
		return true
	}

	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}

	return false
}

// patternToRegex converts a gitignore pattern to a regex string.
func patternToRegex(pattern string) string {
	var result strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ matches any number of directories
					result.WriteString("(?:.*/)?")
					i += 3
					continue
				} else if i == 0 || pattern[i-1] == '/' {
					// ** at end or between slashes matches anything
					result.WriteString(".*")
					i += 2
					continue
				}
			}
			// Single * matches anything except /
			result.WriteString("[^/]*")
			i++

		case '?':
			result.WriteString("[^/]")
			i++

		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				result.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				result.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			result.WriteString(regexp.QuoteMeta(string(c)))
			i++

		default:
			result.WriteString(string(c))
			i++
		}
	}

	return result.String()
}

// RipgrepGlobs converts the matcher's patterns into ripgrep --glob
// exclusions so the pattern source honors the same ignore rules as the
// indexer. Negation (re-inclusion) rules are omitted: a single
// include-form -g glob flips ripgrep's override set into a whitelist
// that drops every unmatched file, so re-inclusions cannot be
// expressed without collapsing the set.
func (m *Matcher) RipgrepGlobs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	globs := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		if r.negation {
			continue
		}
		p := strings.TrimSuffix(r.pattern, "/")
		if r.dirOnly {
			if !r.anchored {
				// ripgrep anchors any glob with an internal slash to
				// the root; **/ keeps the match-anywhere semantics
				p = "**/" + p
			}
			p += "/**"
		}
		globs = append(globs, "!"+p)
	}
	return globs
}
