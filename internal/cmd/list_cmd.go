package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runger/texo/internal/frecency"
	"github.com/runger/texo/internal/picker"
)

var (
	listLimit int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:     "list [keyword]",
	Aliases: []string{"ls"},
	Short:   "Show tracked files ranked by frecency",
	GroupID: groupCore,
	Long: `Show tracked files in the order texo would offer them, best first.
With a keyword, only files whose path contains it (ignoring case) are shown.
Listing does not count as a visit.

Examples:
  texo list                # everything
  texo list fish -n 5      # top five matches for "fish"
  texo list --json | jq .`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of files to show (0 = all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

// listItem is the JSON form of one listed file.
type listItem struct {
	Path         string    `json:"path"`
	Score        float64   `json:"score"`
	VisitCount   int64     `json:"visit_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var keyword string
	if len(args) > 0 {
		keyword = args[0]
	}

	now := a.tracker.Now()
	candidates, err := a.tracker.CandidatesAt(cmd.Context(), keyword, now)
	if err != nil {
		return err
	}
	if listLimit > 0 && len(candidates) > listLimit {
		candidates = candidates[:listLimit]
	}

	if listJSON {
		return writeListJSON(cmd.OutOrStdout(), candidates)
	}

	out := cmd.OutOrStdout()
	if len(candidates) == 0 {
		fmt.Fprintln(out, dimColor.Sprint("no tracked files"))
		return nil
	}
	writeListTable(out, candidates, now, termWidth())
	return nil
}

func writeListJSON(w io.Writer, candidates []frecency.Candidate) error {
	items := make([]listItem, len(candidates))
	for i, c := range candidates {
		items[i] = listItem{
			Path:         c.Path,
			Score:        c.Score,
			VisitCount:   c.VisitCount,
			LastAccessed: c.LastAccessed,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// writeListTable prints score, visits, age and path, one file per row.
// Paths are shortened in the middle to fit width when width is known.
func writeListTable(w io.Writer, candidates []frecency.Candidate, now time.Time, width int) {
	const prefixWidth = 8 + 1 + 6 + 1 + 14 + 1

	fmt.Fprintln(w, boldColor.Sprintf("%8s %6s %-14s %s", "SCORE", "VISITS", "LAST", "PATH"))
	for _, c := range candidates {
		path := picker.DisplayPath(c.Path)
		if width > prefixWidth+10 {
			path = picker.MiddleTruncate(path, width-prefixWidth)
		}
		fmt.Fprintf(w, "%8.2f %6d %-14s %s\n",
			c.Score,
			c.VisitCount,
			humanize.RelTime(c.LastAccessed, now, "ago", "from now"),
			pathColor.Sprint(path),
		)
	}
}
