package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adalundhe/pollwatch/core/sink"
	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// History Command Tests
// =============================================================================

func TestHistoryCmd_Definition(t *testing.T) {
	assert.Equal(t, "history", historyCmd.Use)
	assert.Equal(t, "Show recorded changes", historyCmd.Short)

	limit := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
	assert.Equal(t, "n", limit.Shorthand)
}

func TestParseChangeFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"created", "CREATED", false},
		{"Modified", "MODIFIED", false},
		{"DELETED", "DELETED", false},
		{"renamed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseChangeFilter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUnknownChange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func sampleRecords() []sink.Record {
	return []sink.Record{
		{Timestamp: "2026-01-01 00:00:03", File: "c", Change: "DELETED"},
		{Timestamp: "2026-01-01 00:00:02", File: "b", Change: "CREATED"},
		{Timestamp: "2026-01-01 00:00:01", File: "a", Change: "CREATED"},
	}
}

func TestFilterRecords(t *testing.T) {
	t.Run("no filter no limit", func(t *testing.T) {
		assert.Len(t, filterRecords(sampleRecords(), "", 0), 3)
	})

	t.Run("change filter", func(t *testing.T) {
		got := filterRecords(sampleRecords(), "CREATED", 0)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].File)
	})

	t.Run("limit applies after filter", func(t *testing.T) {
		got := filterRecords(sampleRecords(), "CREATED", 1)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].File)
	})
}

func TestLoadHistory_JSONLNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes_log.json")
	s := sink.NewJSONLSink(path)
	require.NoError(t, s.Append(sink.Record{Timestamp: "t1", File: "first", Change: "CREATED"}))
	require.NoError(t, s.Append(sink.Record{Timestamp: "t2", File: "second", Change: "MODIFIED"}))

	records, err := loadHistory(context.Background(), path, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].File)
	assert.Equal(t, "first", records[1].File)
}

func TestLoadHistory_MissingLogIsEmpty(t *testing.T) {
	records, err := loadHistory(context.Background(), filepath.Join(t.TempDir(), "none.json"), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadHistory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sink.NewSQLiteSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, db.Consume(ctx, watcher.ChangeEvent{Name: "a", Operation: watcher.OpCreate, Time: now}))
	require.NoError(t, db.Consume(ctx, watcher.ChangeEvent{Name: "a", Operation: watcher.OpDelete, Time: now.Add(time.Second)}))
	require.NoError(t, db.Close())

	records, err := loadHistory(ctx, "", path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "DELETED", records[0].Change)
}

func TestLoadHistory_MissingSQLiteIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo", "events.db")

	_, err := loadHistory(context.Background(), "", path)
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestWriteHistoryTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		writeHistoryTable(&buf, nil)
		assert.Contains(t, buf.String(), "No changes recorded.")
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		writeHistoryTable(&buf, sampleRecords())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 5)
		assert.True(t, strings.HasPrefix(lines[0], "TIMESTAMP"))
		assert.Contains(t, lines[2], "DELETED")
		assert.Contains(t, lines[2], "c")
	})
}

func TestWriteHistoryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistoryJSON(&buf, sampleRecords()))

	var decoded []sink.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleRecords(), decoded)
}
