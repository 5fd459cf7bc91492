package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/runger/texo/internal/frecency"
)

// Fzf pipes the ranked candidates through an external fzf process. When
// fzf is not on PATH it hands off to Fallback.
type Fzf struct {
	Fallback Backend

	logger   *slog.Logger
	lookPath func(file string) (string, error)
}

// NewFzf returns an fzf backend that uses fallback when fzf is missing.
func NewFzf(fallback Backend, logger *slog.Logger) *Fzf {
	return &Fzf{Fallback: fallback, logger: logger, lookPath: exec.LookPath}
}

// Select runs fzf over the candidate paths in rank order.
func (f *Fzf) Select(ctx context.Context, title string, candidates []frecency.Candidate) (string, bool, error) {
	bin, err := f.lookPath("fzf")
	if err != nil {
		f.logger.Debug("fzf not found on PATH, falling back to builtin")
		return f.Fallback.Select(ctx, title, candidates)
	}

	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = c.Path
	}

	// NUL-delimited so paths containing newlines survive the round trip.
	args := []string{"--read0", "--print0", "--no-sort", "--exact", "-i", "--header", title}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(strings.Join(lines, "\x00"))
	cmd.Stderr = os.Stderr // fzf draws its UI on the tty via stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		// 1 = no match, 130 = interrupted by the user
		if errors.As(err, &exitErr) && (exitErr.ExitCode() == 1 || exitErr.ExitCode() == 130) {
			return "", false, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, fmt.Errorf("fzf: %w", err)
	}

	path, _, _ := strings.Cut(string(output), "\x00")
	if path == "" {
		return "", false, nil
	}
	return path, true, nil
}
