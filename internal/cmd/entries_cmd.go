package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/texo/internal/tracker"
)

var addCmd = &cobra.Command{
	Use:     "add <path>...",
	Short:   "Record a visit to files without opening them",
	GroupID: groupCore,
	Long: `Record one visit to each path, exactly as if it had been opened
through texo. Useful for editor hooks that report every opened file.

Examples:
  texo add ~/.bashrc
  texo add *.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove <path>...",
	Aliases: []string{"rm"},
	Short:   "Forget files",
	GroupID: groupCore,
	Long: `Remove the entries for the given paths. The files themselves are
not touched. Paths of files that no longer exist are accepted too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var pruneCmd = &cobra.Command{
	Use:     "prune",
	Short:   "Forget files that no longer exist",
	GroupID: groupCore,
	Long: `Remove every entry whose file is gone. This also happens
automatically before each keyword lookup.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var failed int
	for _, arg := range args {
		e, err := a.tracker.Register(cmd.Context(), arg)
		switch {
		case errors.Is(err, tracker.ErrExcluded):
			fmt.Fprintf(out, "%s %s\n", dimColor.Sprint("excluded"), e.Path)
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", warnColor.Sprint("skipped"), err)
			failed++
		default:
			fmt.Fprintf(out, "%s %s %s\n", countColor.Sprint("added"), pathColor.Sprint(e.Path),
				dimColor.Sprintf("(%s)", visits(e.VisitCount)))
		}
	}

	if failed > 0 {
		return &ExitError{Message: fmt.Sprintf("%d of %d paths could not be added", failed, len(args)), Code: 1}
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	for _, arg := range args {
		key, removed, err := a.tracker.Remove(cmd.Context(), arg)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintf(out, "%s %s\n", countColor.Sprint("removed"), pathColor.Sprint(key))
		} else {
			fmt.Fprintf(out, "%s %s\n", dimColor.Sprint("no entry for"), key)
		}
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pruned, err := a.tracker.Prune(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range pruned {
		fmt.Fprintf(out, "%s %s\n", countColor.Sprint("pruned"), p)
	}
	if len(pruned) == 0 {
		fmt.Fprintln(out, dimColor.Sprint("nothing to prune"))
	}
	return nil
}

func visits(n int64) string {
	if n == 1 {
		return "1 visit"
	}
	return fmt.Sprintf("%d visits", n)
}
