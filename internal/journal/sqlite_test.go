package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecordAndRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	j, err := Open(ctx, path)
	require.NoError(t, err)
	defer j.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.Record(ctx, Entry{
		RunID: "run-1", Network: "facebook", PostID: "42", Row: 2,
		Found: true, URL: "https://www.facebook.com/p/posts/1", Provider: "cse", ResolvedAt: at,
	}))
	require.NoError(t, j.Record(ctx, Entry{RunID: "run-1", Network: "facebook", PostID: "43", Row: 3}))
	require.NoError(t, j.Record(ctx, Entry{RunID: "run-2", Network: "instagram", PostID: "1", Row: 2, Found: true}))

	lite, ok := j.(*SQLite)
	require.True(t, ok, "Open() of a file path returns the SQLite journal")

	entries, err := lite.Entries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "42", entries[0].PostID)
	assert.True(t, entries[0].Found)
	assert.Equal(t, "cse", entries[0].Provider)
	assert.True(t, entries[0].ResolvedAt.Equal(at))
	assert.False(t, entries[1].Found)
	assert.False(t, entries[1].ResolvedAt.IsZero(), "missing timestamp is filled in")

	n, err := lite.Found(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{RunID: "r", Network: "instagram", PostID: "1", Found: true}))
	require.NoError(t, j.Close())

	j, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer j.Close()
	n, err := j.Found(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}
