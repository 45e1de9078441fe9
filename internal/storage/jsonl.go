package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"balancerScope/internal/model"
)

// JsonlStorage appends log record batches to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writer, err := NewJsonlWriter(s.path, true)
	if err != nil {
		return err
	}
	for _, record := range logs {
		if err := writer.Write(record); err != nil {
			writer.Close()
			return fmt.Errorf("write log record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// JsonlWriter streams JSON values to a file, one per line. It is not
// safe for concurrent use.
type JsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// NewJsonlWriter opens path for writing, truncating it unless appendMode is set.
func NewJsonlWriter(path string, appendMode bool) (*JsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &JsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *JsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *JsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

const maxJsonlLine = 10 * 1024 * 1024

// ScanJsonl calls fn for every non-blank line in path, stopping at the first
// error fn returns. Lines may be up to 10 MiB.
func ScanJsonl(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJsonlLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}
