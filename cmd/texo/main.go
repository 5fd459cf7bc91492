// Package main is the entry point for the texo CLI.
package main

import (
	"os"

	"github.com/runger/texo/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cmd.ExitCode(cmd.Execute())
}
