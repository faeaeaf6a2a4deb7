// Package config loads and validates the project configuration from
// .quarry.yaml, with environment overrides for scripted use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
)

// FileName is the project configuration file at the primary root.
const FileName = ".quarry.yaml"

// StateDirName is the per-root state directory holding the database,
// lock file, and logs.
const StateDirName = ".quarry"

// Duration is a time.Duration that round-trips through YAML as a
// human-readable string ("5m", "10s").
type Duration time.Duration

// UnmarshalYAML accepts duration strings or raw nanosecond integers.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML emits the string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete Quarry configuration.
type Config struct {
	Version int          `yaml:"version"`
	Roots   []RootConfig `yaml:"roots,omitempty"`
	Paths   PathsConfig  `yaml:"paths"`
	Search  SearchConfig `yaml:"search"`
	Index   IndexConfig  `yaml:"index"`
	Logging LogConfig    `yaml:"logging"`
}

// RootConfig is one additional root mounted beyond the primary one.
type RootConfig struct {
	Path  string `yaml:"path"`
	Alias string `yaml:"alias"`
}

// PathsConfig holds extra exclusion patterns, gitignore syntax, applied
// on top of the built-in defaults and .quarryignore files.
type PathsConfig struct {
	Exclude []string `yaml:"exclude,omitempty"`
}

// SearchConfig tunes the dual-source merge.
type SearchConfig struct {
	// FTSWeight and PatternWeight scale the normalized per-source
	// scores; BothBonus is added when both sources agree on a file.
	FTSWeight     float64  `yaml:"fts_weight"`
	PatternWeight float64  `yaml:"pattern_weight"`
	BothBonus     float64  `yaml:"both_bonus"`
	MaxResults    int      `yaml:"max_results"`
	SourceTimeout Duration `yaml:"source_timeout"`
}

// IndexConfig tunes the indexing pass.
type IndexConfig struct {
	// StaleThreshold is how old the manifest may be before a search
	// triggers a synchronous refresh.
	StaleThreshold Duration `yaml:"stale_threshold"`
	MaxFileSizeMB  int      `yaml:"max_file_size_mb"`
	Workers        int      `yaml:"workers"`
}

// LogConfig controls file logging under the state directory.
type LogConfig struct {
	Level     string `yaml:"level"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			FTSWeight:     0.6,
			PatternWeight: 0.4,
			BothBonus:     0.2,
			MaxResults:    20,
			SourceTimeout: Duration(10 * time.Second),
		},
		Index: IndexConfig{
			StaleThreshold: Duration(5 * time.Minute),
			MaxFileSizeMB:  10,
			Workers:        0, // 0 means GOMAXPROCS
		},
		Logging: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// Load reads .quarry.yaml from dir, falling back to defaults when the
// file is absent. Environment variables override file values.
func Load(dir string) (*Config, error) {
	cfg := New()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, qerrors.New(qerrors.ErrCodeConfigNotFound,
				fmt.Sprintf("cannot read %s", path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, qerrors.New(qerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("malformed YAML in %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets QUARRY_* variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QUARRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("QUARRY_FTS_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.FTSWeight = f
		}
	}
	if v := os.Getenv("QUARRY_PATTERN_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.PatternWeight = f
		}
	}
	if v := os.Getenv("QUARRY_STALE_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Index.StaleThreshold = Duration(d)
		}
	}
	if v := os.Getenv("QUARRY_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.SourceTimeout = Duration(d)
		}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.FTSWeight < 0 || c.Search.FTSWeight > 1 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"fts_weight must be between 0 and 1, got %g", c.Search.FTSWeight)
	}
	if c.Search.PatternWeight < 0 || c.Search.PatternWeight > 1 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"pattern_weight must be between 0 and 1, got %g", c.Search.PatternWeight)
	}
	if c.Search.BothBonus < 0 || c.Search.BothBonus > 1 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"both_bonus must be between 0 and 1, got %g", c.Search.BothBonus)
	}
	if c.Search.MaxResults < 0 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Index.MaxFileSizeMB <= 0 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"max_file_size_mb must be positive, got %d", c.Index.MaxFileSizeMB)
	}
	if c.Index.Workers < 0 {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"workers must be non-negative, got %d", c.Index.Workers)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
			"logging.level must be debug, info, warn, or error, got %s", c.Logging.Level)
	}

	seen := make(map[string]bool, len(c.Roots))
	for _, r := range c.Roots {
		if r.Path == "" {
			return qerrors.Newf(qerrors.ErrCodeConfigInvalid, "root path must not be empty")
		}
		if r.Alias == "" {
			return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
				"root %s needs an alias to keep index paths unique", r.Path)
		}
		if seen[r.Alias] {
			return qerrors.Newf(qerrors.ErrCodeConfigInvalid,
				"duplicate root alias %q", r.Alias)
		}
		seen[r.Alias] = true
	}

	return nil
}

// MaxFileSize returns the size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Index.MaxFileSizeMB) * 1024 * 1024
}

// Save writes the configuration atomically: full write to a temp file
// in the same directory, then rename.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "failed to marshal config", err)
	}

	path := filepath.Join(dir, FileName)
	tmp, err := os.CreateTemp(dir, FileName+".tmp*")
	if err != nil {
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "failed to create temp config", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "failed to write config", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "failed to close config", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "failed to replace config", err)
	}
	return nil
}

// StateDir returns the state directory under the primary root.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// DBPath returns the index database path under the primary root.
func DBPath(root string) string {
	return filepath.Join(StateDir(root), "index.db")
}
