package retrieval

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestQueryLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := NewQueryLogger(&buf)

	concurrency := 50
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				logger.Log(QueryLogEntry{
					Query:    "test",
					Duration: time.Millisecond,
				})
			}
		}()
	}
	wg.Wait()

	// Verify output is valid JSON stream
	decoder := json.NewDecoder(&buf)
	count := 0
	for decoder.More() {
		var entry QueryLogEntry
		err := decoder.Decode(&entry)
		if err != nil {
			t.Fatalf("Failed to decode entry %d: %v", count, err)
		}
		count++
	}

	expected := concurrency * iterations
	if count != expected {
		t.Errorf("Expected %d entries, got %d", expected, count)
	}
}

func TestQueryLogger_EntryFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewQueryLogger(&buf)

	logger.Log(QueryLogEntry{
		Query:         "what is chunk overlap",
		K:             4,
		NumResults:    3,
		Duration:      1500 * time.Millisecond,
		CorrelationID: "abc-123",
	})

	var entry QueryLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}

	if entry.K != 4 || entry.NumResults != 3 {
		t.Errorf("Expected k=4 results=3, got k=%d results=%d", entry.K, entry.NumResults)
	}
	if entry.LatencyMs != 1500 {
		t.Errorf("Expected latency 1500ms, got %d", entry.LatencyMs)
	}
	if entry.CorrelationID != "abc-123" {
		t.Errorf("Expected correlation id preserved, got %q", entry.CorrelationID)
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected timestamp to be stamped on write")
	}
}

func TestFileQueryLogger_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "query.log")

	logger, err := NewFileQueryLogger(path)
	if err != nil {
		t.Fatalf("NewFileQueryLogger: %v", err)
	}
	logger.Log(QueryLogEntry{Query: "hello"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected log entry written to file")
	}
}
