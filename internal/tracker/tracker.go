// Package tracker ties the entry store, the frecency matcher and the
// interactive picker together into texo's two operations: registering a
// visited file and resolving a keyword to one file.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/runger/texo/internal/frecency"
	"github.com/runger/texo/internal/picker"
	"github.com/runger/texo/internal/storage"
)

var (
	// ErrNotFound means the keyword matched no tracked file.
	ErrNotFound = errors.New("no matching file")
	// ErrCancelled means the user aborted the interactive selection.
	ErrCancelled = errors.New("selection cancelled")
	// ErrPathVanished means the chosen file was deleted after listing.
	ErrPathVanished = errors.New("file no longer exists")
	// ErrExcluded means the path matches a track.exclude pattern.
	ErrExcluded = errors.New("path is excluded from tracking")
	// ErrNotRegular means the path is a directory, device or other
	// non-regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// Tracker implements registration and keyword resolution.
type Tracker struct {
	store   storage.Store
	picker  picker.Backend
	exclude []string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithExclude sets doublestar patterns for paths that are never registered.
func WithExclude(patterns []string) Option {
	return func(t *Tracker) { t.exclude = patterns }
}

// WithClock overrides the time source used for scoring.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// New returns a Tracker over store. p is consulted only when a keyword
// matches more than one file.
func New(store storage.Store, p picker.Backend, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		picker: p,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Normalize returns the absolute, symlink-free form of path. The file must
// exist.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return resolved, nil
}

// Excluded reports whether path matches one of the exclude patterns.
// Patterns and path are compared with forward slashes and without the
// leading separator, so "**/.git/COMMIT_EDITMSG" matches at any depth.
func (t *Tracker) Excluded(path string) bool {
	p := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range t.exclude {
		ok, err := doublestar.Match(strings.TrimPrefix(pattern, "/"), p)
		if err != nil {
			t.logger.Warn("bad exclude pattern", "pattern", pattern, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Register records one visit to path and returns the updated entry.
// Only regular files are tracked.
func (t *Tracker) Register(ctx context.Context, path string) (storage.Entry, error) {
	norm, err := Normalize(path)
	if err != nil {
		return storage.Entry{}, err
	}
	fi, err := os.Stat(norm)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return storage.Entry{Path: norm}, fmt.Errorf("%w: %s", ErrNotRegular, norm)
	}
	if t.Excluded(norm) {
		t.logger.Debug("path excluded", "path", norm)
		return storage.Entry{Path: norm}, ErrExcluded
	}

	e, err := t.store.Upsert(ctx, norm)
	if err != nil {
		return storage.Entry{}, err
	}
	t.logger.Debug("entry registered", "path", e.Path, "visit_count", e.VisitCount)
	return e, nil
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Candidates prunes vanished files and returns the ranked matches for
// keyword. An empty keyword lists everything.
func (t *Tracker) Candidates(ctx context.Context, keyword string) ([]frecency.Candidate, error) {
	return t.CandidatesAt(ctx, keyword, t.now())
}

// CandidatesAt is Candidates with scores computed as of now.
func (t *Tracker) CandidatesAt(ctx context.Context, keyword string, now time.Time) ([]frecency.Candidate, error) {
	if _, err := t.Prune(ctx); err != nil {
		return nil, err
	}
	entries, err := storage.Collect(t.store.ListAll(ctx))
	if err != nil {
		return nil, err
	}
	return frecency.Match(keyword, entries, now), nil
}

// Resolve turns keyword into one file path and records the visit.
//
// No match returns ErrNotFound. A single match is returned without
// prompting. Otherwise every candidate goes to the picker; cancelling
// there returns ErrCancelled. A choice whose file disappeared in the
// meantime returns ErrPathVanished.
func (t *Tracker) Resolve(ctx context.Context, keyword string) (string, error) {
	candidates, err := t.Candidates(ctx, keyword)
	if err != nil {
		return "", err
	}

	var path string
	switch len(candidates) {
	case 0:
		t.logger.Debug("no match", "keyword", keyword)
		return "", ErrNotFound
	case 1:
		path = candidates[0].Path
	default:
		chosen, ok, err := t.picker.Select(ctx, picker.Title(keyword), candidates)
		if err != nil {
			return "", err
		}
		if !ok {
			t.logger.Debug("selection cancelled", "keyword", keyword)
			return "", ErrCancelled
		}
		path = chosen
	}

	if _, err := os.Stat(path); err != nil {
		t.logger.Debug("chosen path vanished", "path", path, "error", err)
		return "", fmt.Errorf("%w: %s", ErrPathVanished, path)
	}

	if _, err := t.store.Upsert(ctx, path); err != nil {
		return "", err
	}
	t.logger.Debug("keyword resolved", "keyword", keyword, "path", path)
	return path, nil
}

// Remove forgets arg. An existing file is normalized first; otherwise arg
// is made absolute and removed verbatim, so entries for deleted files can
// still be dropped. It returns the key that was looked up.
func (t *Tracker) Remove(ctx context.Context, arg string) (string, bool, error) {
	if arg == "" {
		return "", false, fmt.Errorf("empty path")
	}
	key, err := Normalize(arg)
	if err != nil {
		key, err = filepath.Abs(arg)
		if err != nil {
			return "", false, fmt.Errorf("resolving %s: %w", arg, err)
		}
	}
	removed, err := t.store.Remove(ctx, key)
	if err != nil {
		return key, false, err
	}
	t.logger.Debug("entry remove", "path", key, "removed", removed)
	return key, removed, nil
}

// Prune drops entries whose files no longer exist.
func (t *Tracker) Prune(ctx context.Context) ([]string, error) {
	return t.store.PruneMissing(ctx)
}
