package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/texo/internal/frecency"
)

// Backend names accepted by New.
const (
	BackendBuiltin = "builtin"
	BackendFzf     = "fzf"
)

// minTermWidth is the narrowest terminal the builtin picker will draw in.
const minTermWidth = 20

// DefaultMaxRows is how many candidate rows the builtin picker draws at once.
const DefaultMaxRows = 20

// ErrNoTerminal is returned when an interactive choice is needed but no
// usable terminal is attached.
var ErrNoTerminal = errors.New("no interactive terminal")

// Backend presents ranked candidates to the user and returns the chosen
// path. ok is false when the user cancelled.
type Backend interface {
	Select(ctx context.Context, title string, candidates []frecency.Candidate) (path string, ok bool, err error)
}

// New returns the backend for name. Unknown names get the builtin picker.
// maxRows caps the rows the builtin picker draws; the live filter still
// searches every candidate. Zero means DefaultMaxRows.
func New(name string, logger *slog.Logger, maxRows int) Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	tui := &TUI{logger: logger, maxRows: maxRows}
	if name == BackendFzf {
		return NewFzf(tui, logger)
	}
	return tui
}

// Title is the heading shown above the candidate list.
func Title(keyword string) string {
	return fmt.Sprintf("Matches for '%s'", DisplayPath(keyword))
}

// TUI is the builtin Bubble Tea picker. It draws on the controlling
// terminal so stdout stays free for --print output.
type TUI struct {
	logger  *slog.Logger
	maxRows int
}

// Select runs the picker until the user confirms or cancels.
func (t *TUI) Select(ctx context.Context, title string, candidates []frecency.Candidate) (string, bool, error) {
	if os.Getenv("TERM") == "dumb" {
		return "", false, fmt.Errorf("%w: TERM=dumb is not supported", ErrNoTerminal)
	}

	in, out, err := openTTY()
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}
	defer closeTTY(in, out)

	if w := terminalWidth(out); w > 0 && w < minTermWidth {
		return "", false, fmt.Errorf("%w: terminal too narrow (%d columns, need at least %d)",
			ErrNoTerminal, w, minTermWidth)
	}

	// stdout may be a pipe; take the colour profile from the tty itself.
	lipgloss.SetColorProfile(termenv.NewOutput(out).ColorProfile())

	p := tea.NewProgram(NewModel(title, candidates).WithMaxRows(t.maxRows),
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, fmt.Errorf("picker: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return "", false, fmt.Errorf("picker: unexpected model type %T", final)
	}

	t.logger.Debug("picker finished", "state", m.State().String())
	path, chosen := m.Result()
	return path, chosen, nil
}
