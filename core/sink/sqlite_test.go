package sink

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteSink(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "state", "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSink_ConsumeAndRecent(t *testing.T) {
	s := newTestSQLiteSink(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, s.Consume(ctx, event("a.txt", watcher.OpCreate, base)))
	require.NoError(t, s.Consume(ctx, event("a.txt", watcher.OpModify, base.Add(time.Second))))
	require.NoError(t, s.Consume(ctx, event("b.txt", watcher.OpDelete, base.Add(2*time.Second))))

	records, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{Timestamp: "2026-05-01 12:00:02", File: "b.txt", Change: "DELETED"}, records[0])
	assert.Equal(t, "MODIFIED", records[1].Change)
	assert.Equal(t, "CREATED", records[2].Change)
}

func TestSQLiteSink_RecentLimit(t *testing.T) {
	s := newTestSQLiteSink(t)
	ctx := context.Background()
	base := time.Now()

	for i, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Consume(ctx, event(name, watcher.OpCreate, base.Add(time.Duration(i)*time.Millisecond))))
	}

	records, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "d", records[0].File)
	assert.Equal(t, "c", records[1].File)
}

func TestSQLiteSink_SameTimestampKeepsInsertOrder(t *testing.T) {
	s := newTestSQLiteSink(t)
	ctx := context.Background()
	at := time.Now()

	require.NoError(t, s.Consume(ctx, event("first", watcher.OpCreate, at)))
	require.NoError(t, s.Consume(ctx, event("second", watcher.OpCreate, at)))

	records, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].File)
}

func TestSQLiteSink_ReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	s, err := NewSQLiteSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Consume(ctx, event("a.txt", watcher.OpCreate, time.Now())))
	require.NoError(t, s.Close())

	s, err = NewSQLiteSink(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteSink_ClosedDatabaseIsSinkWriteError(t *testing.T) {
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Consume(context.Background(), event("a.txt", watcher.OpCreate, time.Now()))

	var sinkErr *watcher.SinkWriteError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "sqlite", sinkErr.Sink)
}

func TestOpenSQLiteReader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "events.db")

	_, err := OpenSQLiteReader(path)
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "reader must not create the state directory")
}

func TestOpenSQLiteReader_ReadsButRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	w, err := NewSQLiteSink(path)
	require.NoError(t, err)
	require.NoError(t, w.Consume(ctx, event("a.txt", watcher.OpCreate, time.Now())))
	require.NoError(t, w.Close())

	r, err := OpenSQLiteReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	records, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].File)

	err = r.Consume(ctx, event("b.txt", watcher.OpCreate, time.Now()))
	var sinkErr *watcher.SinkWriteError
	require.ErrorAs(t, err, &sinkErr)

	records, err = r.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
