package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarrysearch/quarry/internal/config"
	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/indexer"
	"github.com/quarrysearch/quarry/internal/output"
)

func newIndexCmd() *cobra.Command {
	var force bool
	var recreate bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the content index",
		Long: `Scan the workspace and update the content index. Only files whose
content changed since the last pass are re-extracted.

Examples:
  quarry index
  quarry index --force      re-extract everything
  quarry index --recreate   rebuild a corrupt index from scratch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, force, recreate)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-extract all files, ignoring stored digests")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop and rebuild a corrupt index database")

	return cmd
}

func runIndex(cmd *cobra.Command, force, recreate bool) error {
	w := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	root, cfg, st, err := openWorkspace(recreate)
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

	report, err := ix.Run(ctx, indexer.Options{
		Roots:         roots,
		ExtraPatterns: cfg.Paths.Exclude,
		MaxFileSize:   cfg.MaxFileSize(),
		Workers:       cfg.Index.Workers,
		Force:         force,
	})
	if err != nil {
		return printErr(w, err)
	}

	w.Success("indexed %d files in %s", report.Total(), report.Duration.Round(time.Millisecond))
	w.Field("Added", report.Added)
	w.Field("Updated", report.Updated)
	w.Field("Deleted", report.Deleted)
	w.Field("Unchanged", report.Unchanged)
	if len(report.Skipped) > 0 {
		w.Field("Skipped", len(report.Skipped))
		for _, sk := range report.Skipped {
			w.Printf("    %s %s\n", w.Path(sk.Path), w.Dim("("+sk.Reason+")"))
		}
	}
	return nil
}

// printErr renders a structured error with its suggestion on stderr
// and returns it so the process exits non-zero.
func printErr(_ *output.Writer, err error) error {
	ew := output.New(os.Stderr)
	ew.Error("%v", err)

	var qe *qerrors.QuarryError
	if errors.As(err, &qe) && qe.Suggestion != "" {
		ew.Printf("  %s\n", ew.Dim(qe.Suggestion))
	}
	return err
}
