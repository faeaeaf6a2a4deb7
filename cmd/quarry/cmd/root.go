// Package cmd provides the CLI commands for Quarry.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarrysearch/quarry/internal/config"
	"github.com/quarrysearch/quarry/internal/ignore"
	"github.com/quarrysearch/quarry/internal/logging"
	"github.com/quarrysearch/quarry/internal/scanner"
	"github.com/quarrysearch/quarry/internal/store"
	"github.com/quarrysearch/quarry/pkg/version"
)

var (
	rootDir        string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the quarry CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarry",
		Short: "Incremental content index with dual-source ranked search",
		Long: `Quarry keeps an incremental full-text index of a directory tree and
answers searches by merging index relevance with live ripgrep matches.

Run 'quarry index' once, then 'quarry search <query>'. The index is
refreshed automatically before a search when it has gone stale.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("quarry version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "Workspace root (default: current directory)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.quarry/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMountCmd())
	cmd.AddCommand(newUnmountCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the JSON file logger. The terminal only sees
// command output; logs go to the rotating file, plus stderr in debug
// mode.
func setupLogging(_ *cobra.Command, _ []string) error {
	lc := logging.DefaultConfig()
	lc.WriteToStderr = false
	if debugMode {
		lc.Level = "debug"
		lc.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		// Logging must never block the command itself
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// workspaceRoot resolves the primary root from the --root flag or the
// working directory.
func workspaceRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	return os.Getwd()
}

// openWorkspace loads config and opens the store for the primary root.
func openWorkspace(recreate bool) (string, *config.Config, *store.Store, error) {
	root, err := workspaceRoot()
	if err != nil {
		return "", nil, nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, nil, err
	}

	st, err := store.Open(config.DBPath(root), store.Options{Recreate: recreate})
	if err != nil {
		return "", nil, nil, err
	}
	return root, cfg, st, nil
}

// effectiveRoots builds the ordered root set: the primary root first
// (unaliased), then config roots, then mounted sources, deduplicated by
// alias.
func effectiveRoots(ctx context.Context, root string, cfg *config.Config, st *store.Store) ([]scanner.Root, error) {
	roots := []scanner.Root{{Path: root}}
	seen := map[string]bool{}

	for _, r := range cfg.Roots {
		if seen[r.Alias] {
			continue
		}
		seen[r.Alias] = true
		roots = append(roots, scanner.Root{Path: r.Path, Alias: r.Alias})
	}

	sources, err := st.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if seen[src.Alias] {
			continue
		}
		seen[src.Alias] = true
		roots = append(roots, scanner.Root{Path: src.Path, Alias: src.Alias})
	}
	return roots, nil
}

// ignoreGlobs converts the effective ignore rules to rg glob filters.
func ignoreGlobs(root string, cfg *config.Config) []string {
	matcher, err := ignore.Load(root, cfg.Paths.Exclude)
	if err != nil {
		matcher = ignore.New()
	}
	return matcher.RipgrepGlobs()
}
