// Package storage provides SQLite-based persistent storage for texo.
// It holds one row per tracked file: the path, how often it was opened,
// and when it was last opened.
package storage

import (
	"context"
	"iter"
	"time"
)

// Store defines the interface for all entry storage operations.
// Every texo process opens the database directly; cross-process safety
// comes from SQLite transactions, not from in-process locks.
type Store interface {
	// Upsert registers one visit to path.
	Upsert(ctx context.Context, path string) (Entry, error)
	// Get returns the entry for path or ErrEntryNotFound.
	Get(ctx context.Context, path string) (Entry, error)
	// ListAll yields every entry in no particular order.
	ListAll(ctx context.Context) iter.Seq2[Entry, error]
	// Remove deletes the entry for path, reporting whether one existed.
	Remove(ctx context.Context, path string) (bool, error)
	// PruneMissing deletes entries whose file no longer exists.
	PruneMissing(ctx context.Context) ([]string, error)

	Close() error
}

// Entry is the persisted record for one tracked file path.
type Entry struct {
	Path         string
	VisitCount   int64
	LastAccessed time.Time
}
