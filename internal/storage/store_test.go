package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, historySize int) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath, Options{HistorySize: historySize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func queries(entries []QueryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Query)
	}
	return out
}

func TestStore_RecordQuery(t *testing.T) {
	store := setupTestStore(t, 10)

	require.NoError(t, store.RecordQuery("cat"))
	require.NoError(t, store.RecordQuery("dog"))
	require.NoError(t, store.RecordQuery("  "))
	require.NoError(t, store.RecordQuery("Cat"))

	entries, err := store.RecentQueries(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "dog"}, queries(entries))
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, 1, entries[1].Count)
}

func TestStore_HistoryIsBounded(t *testing.T) {
	store := setupTestStore(t, 3)

	for _, q := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.RecordQuery(q))
	}

	entries, err := store.RecentQueries(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c"}, queries(entries))

	entries, err = store.RecentQueries(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, queries(entries))
}

func TestStore_ClearHistory(t *testing.T) {
	store := setupTestStore(t, 0)
	require.NoError(t, store.RecordQuery("cat"))
	require.NoError(t, store.ClearHistory())

	entries, err := store.RecentQueries(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Session(t *testing.T) {
	store := setupTestStore(t, 0)

	session, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, Session{}, session)

	require.NoError(t, store.SaveSession(Session{Folder: "work", Filename: "plan.md", Preview: true}))
	session, err = store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "work", session.Folder)
	assert.Equal(t, "plan.md", session.Filename)
	assert.True(t, session.Preview)
	assert.False(t, session.UpdatedAt.IsZero())
}

func TestStore_Checksums(t *testing.T) {
	store := setupTestStore(t, 0)

	_, ok, err := store.Checksum("work/a.md")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutChecksum("work/a.md", 0xdeadbeef))
	sum, ok, err := store.Checksum("work/a.md")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xdeadbeef), sum)

	require.NoError(t, store.DeleteChecksum("work/a.md"))
	_, ok, err = store.Checksum("work/a.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	store, err := NewStore(dbPath, Options{})
	require.NoError(t, err)
	require.NoError(t, store.RecordQuery("cat"))
	require.NoError(t, store.Close())

	store, err = NewStore(dbPath, Options{})
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.RecentQueries(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, queries(entries))
}
