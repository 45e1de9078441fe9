package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"balancerScope/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.jsonl")
	sink := NewJsonlStorage(path)

	if err := sink.PutLogBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch should not create the file")
	}

	first := []model.LogRecord{{BlockNumber: 1, LogIndex: 0}, {BlockNumber: 1, LogIndex: 1}}
	second := []model.LogRecord{{BlockNumber: 2, LogIndex: 0, From: "0xabc"}}
	if err := sink.PutLogBatch(first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutLogBatch(second); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var last model.LogRecord
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last.BlockNumber != 2 || last.From != "0xabc" {
		t.Fatalf("last record mismatch: %+v", last)
	}
}

func TestJsonlWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	for _, value := range []string{"first", "second"} {
		writer, err := NewJsonlWriter(path, false)
		if err != nil {
			t.Fatalf("open writer: %v", err)
		}
		if err := writer.Write(map[string]string{"value": value}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	lines := readLines(t, path)
	if len(lines) != 1 || lines[0] != `{"value":"second"}` {
		t.Fatalf("unexpected contents: %v", lines)
	}
}

func TestScanJsonlSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n\n   \n{\"a\":2}\n{\"a\":3}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var seen []string
	err := ScanJsonl(path, func(line []byte) error {
		seen = append(seen, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != 3 || seen[2] != `{"a":3}` {
		t.Fatalf("unexpected lines: %v", seen)
	}
}

func TestScanJsonlStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, []byte("1\n2\n3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stop := errors.New("stop")
	calls := 0
	err := ScanJsonl(path, func([]byte) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 2 {
		t.Fatalf("expected stop after 2 calls, got %d: %v", calls, err)
	}

	if err := ScanJsonl(filepath.Join(t.TempDir(), "missing.jsonl"), func([]byte) error { return nil }); err == nil {
		t.Fatalf("expected error for missing input")
	}
}
