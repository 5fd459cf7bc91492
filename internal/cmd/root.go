package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/runger/texo/internal/editor"
	"github.com/runger/texo/internal/tracker"
)

const (
	groupCore  = "core"
	groupSetup = "setup"
)

// ExitError carries a specific process exit code out of a RunE.
// Message is empty when nothing should be printed.
type ExitError struct {
	Message string
	Code    int
}

func (e *ExitError) Error() string {
	return e.Message
}

var (
	printOnly bool
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:   "texo [path | keyword]",
	Short: "Open files you use often",
	Long: `texo - open recently and frequently used files by keyword

texo remembers every file you open through it and ranks them by
frecency: how often and how recently you opened them.

  texo ~/.config/fish/config.fish   # open the file and remember it
  texo fish                         # open the best match for "fish"
  texo                              # choose from everything texo knows

When a keyword matches several files an interactive list is shown.
An argument that names an existing file is always opened directly.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyColorMode(colorMode)
	},
	RunE: runRoot,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Message != "" {
			fmt.Fprintf(os.Stderr, "texo: %v\n", err)
		}
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	rootCmd.Flags().BoolVarP(&printOnly, "print", "p", false, "Print the chosen path instead of opening it (exit 1 when nothing is chosen)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, or never")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	if isExistingFile(arg) {
		return a.openPath(ctx, cmd, arg)
	}
	return a.openKeyword(ctx, cmd, arg)
}

// isExistingFile reports whether arg names a regular file. Such an
// argument is registered and opened rather than used as a keyword;
// directories and anything else fall through to keyword lookup.
func isExistingFile(arg string) bool {
	if arg == "" {
		return false
	}
	fi, err := os.Stat(arg)
	return err == nil && fi.Mode().IsRegular()
}

// openPath registers path and hands it to the editor.
func (a *app) openPath(ctx context.Context, cmd *cobra.Command, path string) error {
	e, err := a.tracker.Register(ctx, path)
	switch {
	case errors.Is(err, tracker.ErrExcluded):
		// Still open it, just don't remember it.
		a.logger.Info("opening excluded path", "path", e.Path)
		return a.deliver(cmd, e.Path)
	case err != nil:
		return err
	}
	a.logger.Info("path registered", "path", e.Path, "visit_count", e.VisitCount)
	return a.deliver(cmd, e.Path)
}

// openKeyword resolves keyword and hands the result to the editor.
func (a *app) openKeyword(ctx context.Context, cmd *cobra.Command, keyword string) error {
	path, err := a.tracker.Resolve(ctx, keyword)
	switch {
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, tracker.ErrPathVanished):
		a.logger.Info("no match", "keyword", keyword, "error", err)
		if keyword == "" {
			return a.nothingChosen(cmd, "no tracked files yet")
		}
		return a.nothingChosen(cmd, fmt.Sprintf("no file matching '%s'", keyword))
	case errors.Is(err, tracker.ErrCancelled):
		a.logger.Info("selection cancelled", "keyword", keyword)
		return a.nothingChosen(cmd, "")
	case err != nil:
		return err
	}
	a.logger.Info("keyword resolved", "keyword", keyword, "path", path)
	return a.deliver(cmd, path)
}

// nothingChosen reports a clean no-result outcome. It exits 0, except in
// --print mode where exit 1 lets shell wrappers tell the cases apart.
func (a *app) nothingChosen(cmd *cobra.Command, msg string) error {
	if msg != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), warnColor.Sprint("texo: ")+msg)
	}
	if printOnly {
		return &ExitError{Code: 1}
	}
	return nil
}

// deliver prints path in --print mode and opens it in the editor otherwise.
func (a *app) deliver(cmd *cobra.Command, path string) error {
	if printOnly {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	launcher := editor.New(a.cfg.Editor.Command)
	if err := launcher.Open(path); err != nil {
		a.logger.Error("editor failed", "path", path, "error", err)
		return err
	}
	return nil
}
