package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarrysearch/quarry/internal/output"
	"github.com/quarrysearch/quarry/internal/ripgrep"
	"github.com/quarrysearch/quarry/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index freshness and store statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	w := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	root, cfg, st, err := openWorkspace(false)
	if err != nil {
		return printErr(w, err)
	}
	defer st.Close()

	w.Header("Workspace")
	w.Field("Root", root)
	w.Field("Database", st.Path())

	manifest, err := st.ReadManifest(ctx)
	if err != nil {
		return printErr(w, err)
	}

	w.Newline()
	w.Header("Index")
	if manifest == nil {
		w.Field("State", "never indexed")
	} else {
		age := time.Since(manifest.LastIndexedAt).Round(time.Second)
		state := "fresh"
		if age > cfg.Index.StaleThreshold.Std() {
			state = "stale"
		}
		w.Field("State", state)
		w.Field("Last indexed", fmt.Sprintf("%s ago", age))
		w.Field("Files", manifest.TotalFiles)
		w.Field("Tree digest", manifest.AggregateDigest)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return printErr(w, err)
	}
	w.Field("Stored bytes", stats.TotalBytes)
	for ft, n := range stats.TypeCounts {
		w.Field("  "+ft, n)
	}

	run, err := st.LastRun(ctx)
	if err != nil {
		return printErr(w, err)
	}
	if run != nil {
		w.Newline()
		w.Header("Last run")
		w.Field("Status", run.Status)
		w.Field("Started", run.StartedAt.Format(time.RFC3339))
		if run.Status == store.RunStatusFailed && run.Error != "" {
			w.Field("Error", run.Error)
		}
	}

	w.Newline()
	w.Header("Sources")
	if ripgrep.NewRunner(nil).Available() {
		w.Field("ripgrep", "available")
	} else {
		w.Field("ripgrep", "not found (pattern search disabled)")
	}

	sources, err := st.ListSources(ctx)
	if err != nil {
		return printErr(w, err)
	}
	for _, src := range sources {
		w.Field(src.Alias, fmt.Sprintf("%s (%d files)", src.Path, src.FileCount))
	}

	return nil
}
