package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"time"
)

// ErrEntryNotFound is returned when no entry exists for a path.
var ErrEntryNotFound = errors.New("entry not found")

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// Upsert creates the entry for path with a visit count of 1, or increments
// the count of the existing entry. last_accessed is set to now either way.
// The read-modify-write happens inside a single SQL statement, so two
// processes upserting the same path both get counted.
func (s *SQLiteStore) Upsert(ctx context.Context, path string) (Entry, error) {
	if path == "" {
		return Entry{}, errors.New("path is required")
	}

	nowMs := s.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var count, lastMs int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO entries (path, visit_count, last_accessed)
		VALUES (?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			visit_count = visit_count + 1,
			last_accessed = excluded.last_accessed
		RETURNING visit_count, last_accessed
	`, path, nowMs).Scan(&count, &lastMs)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upsert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return Entry{
		Path:         path,
		VisitCount:   count,
		LastAccessed: time.UnixMilli(lastMs),
	}, nil
}

// Get returns the entry for path.
func (s *SQLiteStore) Get(ctx context.Context, path string) (Entry, error) {
	var count, lastMs int64
	err := s.db.QueryRowContext(ctx, `
		SELECT visit_count, last_accessed FROM entries WHERE path = ?
	`, path).Scan(&count, &lastMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}
	return Entry{Path: path, VisitCount: count, LastAccessed: time.UnixMilli(lastMs)}, nil
}

// ListAll returns a sequence over every stored entry. Rows are read lazily
// while the sequence is ranged over; each range runs a fresh query, so the
// sequence can be consumed more than once. A query or scan failure is
// yielded as the error of the final pair. The store has a single
// connection, so other store methods must not be called mid-range.
func (s *SQLiteStore) ListAll(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT path, visit_count, last_accessed FROM entries
		`)
		if err != nil {
			yield(Entry{}, fmt.Errorf("failed to list entries: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			var lastMs int64
			if err := rows.Scan(&e.Path, &e.VisitCount, &lastMs); err != nil {
				yield(Entry{}, fmt.Errorf("failed to scan entry: %w", err))
				return
			}
			e.LastAccessed = time.UnixMilli(lastMs)
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("failed to iterate entries: %w", err))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Entry, error]) ([]Entry, error) {
	var entries []Entry
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Remove deletes the entry for path. Removing an absent path is not an
// error; the boolean reports whether a row was deleted.
func (s *SQLiteStore) Remove(ctx context.Context, path string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("failed to remove entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// PruneMissing deletes every entry whose path no longer exists on disk and
// returns the removed paths. Paths whose existence cannot be determined
// (permission errors and the like) are kept.
//
// A concurrent process may re-register a path between the existence check
// and the delete; that entry is lost and comes back on its next visit.
func (s *SQLiteStore) PruneMissing(ctx context.Context) ([]string, error) {
	entries, err := Collect(s.ListAll(ctx))
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, e := range entries {
		if _, err := os.Stat(e.Path); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, e.Path)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM entries WHERE path = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, p := range missing {
		if _, err := stmt.ExecContext(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to prune %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prune: %w", err)
	}

	for _, p := range missing {
		s.logger.Debug("pruned missing entry", "path", p)
	}
	return missing, nil
}
