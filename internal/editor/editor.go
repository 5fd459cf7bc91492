// Package editor launches the user's text editor on a file.
package editor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/google/shlex"
)

// ErrNoEditor is returned when no editor command can be found.
var ErrNoEditor = errors.New("no editor found")

// Launcher resolves and runs the editor command.
//
// The command is taken from the first non-empty of Command, $VISUAL and
// $EDITOR. It is split with POSIX shell rules, so values such as
// "code --wait" work. With none set, vim, vi and nano are tried on PATH
// (notepad on Windows).
type Launcher struct {
	Command string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	getenv   func(string) string
	lookPath func(string) (string, error)
	goos     string
}

// New returns a Launcher wired to the process environment and terminal.
func New(command string) *Launcher {
	return &Launcher{
		Command:  command,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		goos:     runtime.GOOS,
	}
}

// Argv returns the editor command line, without the file argument.
func (l *Launcher) Argv() ([]string, error) {
	for _, raw := range []string{l.Command, l.getenv("VISUAL"), l.getenv("EDITOR")} {
		if raw == "" {
			continue
		}
		argv, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing editor command %q: %w", raw, err)
		}
		if len(argv) > 0 {
			return argv, nil
		}
	}

	for _, name := range l.fallbacks() {
		if _, err := l.lookPath(name); err == nil {
			return []string{name}, nil
		}
	}
	return nil, ErrNoEditor
}

func (l *Launcher) fallbacks() []string {
	if l.goos == "windows" {
		return []string{"notepad"}
	}
	return []string{"vim", "vi", "nano"}
}

// CommandFor builds the process that opens path. The editor owns the
// terminal until it exits, so it is not tied to texo's interrupt context.
func (l *Launcher) CommandFor(path string) (*exec.Cmd, error) {
	argv, err := l.Argv()
	if err != nil {
		return nil, err
	}
	args := append(argv[1:len(argv):len(argv)], path)
	cmd := exec.Command(argv[0], args...) //nolint:gosec // editor comes from the user's own config and env
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return cmd, nil
}

// Open runs the editor on path and waits for it to exit.
func (l *Launcher) Open(path string) error {
	cmd, err := l.CommandFor(path)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running editor %s: %w", cmd.Path, err)
	}
	return nil
}
