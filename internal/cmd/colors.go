package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
)

// Output styles. fatih/color disables itself for NO_COLOR, TERM=dumb
// and non-terminal stdout; --color overrides that.
var (
	pathColor  = color.New(color.FgCyan)
	countColor = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
	boldColor  = color.New(color.Bold)
)

// applyColorMode applies the --color flag.
func applyColorMode(mode string) error {
	switch mode {
	case "", "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (want auto, always or never)", mode)
	}
	return nil
}

// termWidth returns the width of the terminal on stdout, or 0 when stdout
// is not a terminal. $COLUMNS wins when set.
func termWidth() int {
	if v := os.Getenv("COLUMNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return getTermWidthIoctl()
}
