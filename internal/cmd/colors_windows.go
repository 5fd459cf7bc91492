//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// getTermWidthIoctl returns the console width of stdout, or 0 if unavailable.
func getTermWidthIoctl() int {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err != nil {
		return 0
	}
	return int(info.Window.Right-info.Window.Left) + 1
}
