package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestUpsert_CreatesEntry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := newTestStore(t, WithClock(clock.Now))
	ctx := context.Background()

	e, err := store.Upsert(ctx, "/home/u/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/notes.txt", e.Path)
	assert.Equal(t, int64(1), e.VisitCount)
	assert.Equal(t, clock.Now().UnixMilli(), e.LastAccessed.UnixMilli())

	got, err := store.Get(ctx, "/home/u/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, e.VisitCount, got.VisitCount)
	assert.True(t, e.LastAccessed.Equal(got.LastAccessed))
}

func TestUpsert_Monotonic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := newTestStore(t, WithClock(clock.Now))
	ctx := context.Background()

	const n = 7
	var last time.Time
	for i := 0; i < n; i++ {
		clock.Advance(time.Minute)
		last = clock.Now()
		_, err := store.Upsert(ctx, "/a/b.txt")
		require.NoError(t, err)
	}

	e, err := store.Get(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(n), e.VisitCount)
	assert.Equal(t, last.UnixMilli(), e.LastAccessed.UnixMilli())
}

func TestUpsert_EmptyPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Upsert(context.Background(), "")
	assert.Error(t, err)
}

func TestUpsert_Uniqueness(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"/x/1", "/x/2", "/x/1", "/x/3", "/x/2", "/x/1"} {
		_, err := store.Upsert(ctx, p)
		require.NoError(t, err)
	}

	entries, err := Collect(store.ListAll(ctx))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	counts := map[string]int64{}
	for _, e := range entries {
		_, dup := counts[e.Path]
		assert.False(t, dup, "duplicate entry for %s", e.Path)
		counts[e.Path] = e.VisitCount
	}
	assert.Equal(t, map[string]int64{"/x/1": 3, "/x/2": 2, "/x/3": 1}, counts)
}

func TestUpsert_ConcurrentProcesses(t *testing.T) {
	t.Parallel()

	// Each store has its own connection, standing in for a separate texo
	// process sharing the same database file.
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	const writers = 4
	const perWriter = 25

	stores := make([]*SQLiteStore, writers)
	for i := range stores {
		s, err := NewSQLiteStore(dbPath)
		require.NoError(t, err)
		stores[i] = s
		t.Cleanup(func() { s.Close() })
	}

	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)
	for _, s := range stores {
		wg.Add(1)
		go func(s *SQLiteStore) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if _, err := s.Upsert(context.Background(), "/a/b.txt"); err != nil {
					errCh <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent upsert error: %v", err)
	}

	e, err := stores[0].Get(context.Background(), "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(writers*perWriter), e.VisitCount)
}

func TestUpsert_TwoRacingFromEmpty(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "race.db")
	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s1.Close()
	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []*SQLiteStore{s1, s2} {
		wg.Add(1)
		go func(i int, s *SQLiteStore) {
			defer wg.Done()
			_, errs[i] = s.Upsert(context.Background(), "/a/b.txt")
		}(i, s)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	e, err := s1.Get(context.Background(), "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.VisitCount)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Get(context.Background(), "/nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestListAll_Empty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	entries, err := Collect(store.ListAll(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListAll_Restartable(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	for _, p := range []string{"/c", "/a", "/b"} {
		_, err := store.Upsert(ctx, p)
		require.NoError(t, err)
	}

	seq := store.ListAll(ctx)

	paths := func() []string {
		var out []string
		for e, err := range seq {
			require.NoError(t, err)
			out = append(out, e.Path)
		}
		sort.Strings(out)
		return out
	}

	first := paths()
	second := paths()
	assert.Equal(t, []string{"/a", "/b", "/c"}, first)
	assert.Equal(t, first, second)
}

func TestListAll_EarlyBreak(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	for _, p := range []string{"/a", "/b", "/c"} {
		_, err := store.Upsert(ctx, p)
		require.NoError(t, err)
	}

	n := 0
	for _, err := range store.ListAll(ctx) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)

	// Breaking out must release the connection for later calls.
	_, err := store.Upsert(ctx, "/d")
	require.NoError(t, err)
}

func TestListAll_CancelledContext(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Upsert(context.Background(), "/a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Collect(store.ListAll(ctx))
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "/a/b.txt")
	require.NoError(t, err)

	removed, err := store.Remove(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.Get(ctx, "/a/b.txt")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	removed, err := store.Remove(context.Background(), "/never/seen")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPruneMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	kept := touch(t, filepath.Join(dir, "kept.txt"))
	gone := touch(t, filepath.Join(dir, "gone.txt"))
	neverExisted := filepath.Join(dir, "never", "there.txt")

	for _, p := range []string{kept, gone, neverExisted} {
		_, err := store.Upsert(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(gone))

	pruned, err := store.PruneMissing(ctx)
	require.NoError(t, err)
	sort.Strings(pruned)
	want := []string{gone, neverExisted}
	sort.Strings(want)
	assert.Equal(t, want, pruned)

	entries, err := Collect(store.ListAll(ctx))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept, entries[0].Path)
}

func TestPruneMissing_NothingToDo(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	p := touch(t, filepath.Join(t.TempDir(), "here.txt"))
	_, err := store.Upsert(ctx, p)
	require.NoError(t, err)

	pruned, err := store.PruneMissing(ctx)
	require.NoError(t, err)
	assert.Empty(t, pruned)

	e, err := store.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.VisitCount)
}

func TestPruneMissing_ReRegisterHeals(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "flaky.txt")

	_, err := store.Upsert(ctx, p)
	require.NoError(t, err)
	_, err = store.PruneMissing(ctx)
	require.NoError(t, err)

	touch(t, p)
	e, err := store.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.VisitCount)
}
