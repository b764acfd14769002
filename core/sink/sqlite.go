package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adalundhe/pollwatch/core/storage"
	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteSink stores change events in a SQLite table.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens (or creates) the database at path and prepares the
// schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if err := storage.EnsureDir(filepath.Dir(path), 0); err != nil {
		return nil, fmt.Errorf("failed to create event database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteSink{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// OpenSQLiteReader opens an existing database at path for reading. It never
// creates the file, its directory or the schema, and writes through the
// returned sink fail. A missing file is reported as fs.ErrNotExist.
func OpenSQLiteReader(path string) (*SQLiteSink, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("event database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}
	// query_only is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open event database read-only: %w", err)
	}

	return &SQLiteSink{db: db, path: path}, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS change_events (
		id          TEXT PRIMARY KEY,
		timestamp   TEXT NOT NULL,
		file        TEXT NOT NULL,
		change      TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_events_recorded_at ON change_events(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_change_events_file ON change_events(file);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Name implements watcher.Consumer.
func (s *SQLiteSink) Name() string {
	return "sqlite"
}

// Consume implements watcher.Consumer. Failures are returned as
// *watcher.SinkWriteError.
func (s *SQLiteSink) Consume(ctx context.Context, ev watcher.ChangeEvent) error {
	rec := NewRecord(ev)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO change_events (id, timestamp, file, change, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.Timestamp, rec.File, rec.Change, ev.Time.UnixNano(),
	)
	if err != nil {
		return &watcher.SinkWriteError{Sink: s.Name(), Target: s.path, Err: err}
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns
// all records.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT timestamp, file, change FROM change_events ORDER BY recorded_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Timestamp, &rec.File, &rec.Change); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
