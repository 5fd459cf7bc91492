//go:build !windows

package picker

import (
	"os"

	"golang.org/x/sys/unix"
)

// openTTY opens the controlling terminal for both input and output.
func openTTY() (in, out *os.File, err error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func closeTTY(in, _ *os.File) {
	in.Close()
}

// terminalWidth returns the column count of f, or 0 if unknown.
func terminalWidth(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0
	}
	return int(ws.Col)
}
