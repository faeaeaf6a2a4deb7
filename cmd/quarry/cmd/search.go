package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarrysearch/quarry/internal/config"
	"github.com/quarrysearch/quarry/internal/indexer"
	"github.com/quarrysearch/quarry/internal/output"
	"github.com/quarrysearch/quarry/internal/ripgrep"
	"github.com/quarrysearch/quarry/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	fileType string
	mode     string
	format   string
	noSync   bool
	sync     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed tree",
		Long: `Search the indexed tree. The content index and a live ripgrep pass
run concurrently and their scores are merged into one ranked list.

A stale index is refreshed synchronously before the search unless
--no-sync is given.

Examples:
  quarry search "install guide"
  quarry search TODO --mode pattern
  quarry search handler --type markdown --limit 5
  quarry search "release notes" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.fileType, "type", "t", "", "Restrict index hits to one file type (e.g. markdown)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "combined", "Sources to query: combined, fts, pattern")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.noSync, "no-sync", false, "Skip the pre-search staleness check")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "Force an index refresh before searching")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	w := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	root, cfg, st, err := openWorkspace(false)
	if err != nil {
		return printErr(w, err)
	}
	defer st.Close()

	roots, err := effectiveRoots(ctx, root, cfg, st)
	if err != nil {
		return printErr(w, err)
	}

	ix, err := indexer.New(st, config.StateDir(root), nil)
	if err != nil {
		return printErr(w, err)
	}

	ixOpts := indexer.Options{
		Roots:         roots,
		ExtraPatterns: cfg.Paths.Exclude,
		MaxFileSize:   cfg.MaxFileSize(),
		Workers:       cfg.Index.Workers,
	}

	// Blocking freshness check before the search
	if !opts.noSync {
		monitor := indexer.NewMonitor(st, ix, cfg.Index.StaleThreshold.Std(), nil)
		if opts.sync {
			if _, err := ix.Run(ctx, ixOpts); err != nil {
				return printErr(w, err)
			}
		} else if _, err := monitor.EnsureFresh(ctx, ixOpts); err != nil {
			return printErr(w, err)
		}
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Search.MaxResults
	}
	weights := search.Weights{
		FTS:       cfg.Search.FTSWeight,
		Pattern:   cfg.Search.PatternWeight,
		BothBonus: cfg.Search.BothBonus,
	}

	engine := search.New(st, ripgrep.NewRunner(nil), nil)
	resp, err := engine.Search(ctx, query, search.Options{
		Mode:          search.Mode(opts.mode),
		Limit:         limit,
		FileType:      opts.fileType,
		Roots:         roots,
		Globs:         ignoreGlobs(root, cfg),
		SourceTimeout: cfg.Search.SourceTimeout.Std(),
		Weights:       &weights,
	})
	if err != nil {
		return printErr(w, err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	renderResults(w, resp)
	return nil
}

func renderResults(w *output.Writer, resp *search.Response) {
	for _, warning := range resp.Warnings {
		w.Warning("%s", warning)
	}

	if len(resp.Results) == 0 {
		w.Println("no results")
		return
	}

	for i, r := range resp.Results {
		w.Printf("%2d. %s  %s", i+1, w.Score(r.Score), w.Path(r.Path))
		var tags []string
		if r.FromFTS {
			tags = append(tags, "index")
		}
		if r.FromPattern {
			tags = append(tags, "pattern")
		}
		w.Printf("  %s\n", w.Dim("["+strings.Join(tags, "+")+"]"))
		if r.Excerpt != "" {
			w.Indent(r.Excerpt)
		}
	}
}
