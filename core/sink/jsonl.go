package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/adalundhe/pollwatch/core/storage"
	"github.com/adalundhe/pollwatch/core/watcher"
)

// maxLineSize bounds a single log line when reading the log back.
const maxLineSize = 64 * 1024

// JSONLSink appends one JSON object per line to a log file. The file is
// opened for every append, so a sink that failed once recovers as soon as
// the target becomes writable again.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink creates a sink writing to path. Nothing is opened until the
// first append.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// Name implements watcher.Consumer.
func (s *JSONLSink) Name() string {
	return "jsonl"
}

// Consume implements watcher.Consumer. Failures are returned as
// *watcher.SinkWriteError.
func (s *JSONLSink) Consume(_ context.Context, ev watcher.ChangeEvent) error {
	if err := s.Append(NewRecord(ev)); err != nil {
		return &watcher.SinkWriteError{Sink: s.Name(), Target: s.path, Err: err}
	}
	return nil
}

// Append writes rec as a single newline-terminated line.
func (s *JSONLSink) Append(rec Record) error {
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.EnsureDir(filepath.Dir(s.path), 0); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeLine(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadJSONL loads every record from a JSON-lines log in file order.
// Lines that do not decode are skipped. A missing file yields no records.
func ReadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make([]Record, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, scanner.Err()
}
