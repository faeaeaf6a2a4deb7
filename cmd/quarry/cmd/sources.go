package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/output"
)

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <alias> <path>",
		Short: "Attach an additional directory to the index under an alias",
		Args:  cobra.ExactArgs(2),
		RunE:  runMount,
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	w := output.New(cmd.OutOrStdout())
	alias, dir := args[0], args[1]

	abs, err := filepath.Abs(dir)
	if err != nil {
		return printErr(w, qerrors.New(qerrors.ErrCodeInvalidPath, fmt.Sprintf("resolve path %q", dir), err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return printErr(w, qerrors.New(qerrors.ErrCodeInvalidPath, fmt.Sprintf("path %q is not accessible", abs), err))
	}
	if !info.IsDir() {
		return printErr(w, qerrors.New(qerrors.ErrCodeInvalidPath, fmt.Sprintf("path %q is not a directory", abs), nil))
	}

	_, cfg, st, err := openWorkspace(false)
	if err != nil {
		return printErr(w, err)
	}
	defer st.Close()

	for _, rc := range cfg.Roots {
		if rc.Alias == alias {
			return printErr(w, qerrors.New(qerrors.ErrCodeInvalidInput,
				fmt.Sprintf("alias %q is already used by a configured root", alias), nil))
		}
	}

	src, err := st.AddSource(cmd.Context(), alias, abs)
	if err != nil {
		return printErr(w, err)
	}

	w.Success("mounted %s as %s", src.Path, src.Alias)
	w.Println(w.Dim("run 'quarry index' to pick up its files"))
	return nil
}

func newUnmountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmount <alias>",
		Short: "Detach a mounted directory and drop its indexed files",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnmount,
	}
}

func runUnmount(cmd *cobra.Command, args []string) error {
	w := output.New(cmd.OutOrStdout())
	alias := args[0]

	_, _, st, err := openWorkspace(false)
	if err != nil {
		return printErr(w, err)
	}
	defer st.Close()

	if err := st.RemoveSource(cmd.Context(), alias); err != nil {
		return printErr(w, err)
	}

	w.Success("unmounted %s", alias)
	return nil
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List mounted directories",
		Args:  cobra.NoArgs,
		RunE:  runSources,
	}
}

func runSources(cmd *cobra.Command, _ []string) error {
	w := output.New(cmd.OutOrStdout())

	_, _, st, err := openWorkspace(false)
	if err != nil {
		return printErr(w, err)
	}
	defer st.Close()

	sources, err := st.ListSources(cmd.Context())
	if err != nil {
		return printErr(w, err)
	}
	if len(sources) == 0 {
		w.Println("no sources mounted")
		return nil
	}

	for _, src := range sources {
		w.Println(w.Path(src.Alias))
		w.Indent(fmt.Sprintf("%s (%d files)", src.Path, src.FileCount))
	}
	return nil
}
