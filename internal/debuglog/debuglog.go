// Package debuglog appends timestamped JSONL event records for a render
// session. Off unless a log path is configured; a nil Logger swallows every
// call so call sites need no guards.
package debuglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one logged event.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type Logger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// Open creates or appends to the log file at path.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create debug log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// FromEnv opens the logger named by STREAMDOWN_DEBUG_LOG, or returns nil when
// the variable is unset.
func FromEnv() (*Logger, error) {
	path := os.Getenv("STREAMDOWN_DEBUG_LOG")
	if path == "" {
		return nil, nil
	}
	return Open(path)
}

// Log appends one event. Safe on a nil receiver.
func (l *Logger) Log(event string, fields map[string]any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enc.Encode(Entry{Timestamp: time.Now().UTC(), Event: event, Fields: fields})
}

// Close flushes and closes the log file. Safe on a nil receiver.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Parse reads every entry from a log file, skipping malformed lines.
func Parse(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	dec := json.NewDecoder(f)
	for {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			break
		}
		entries = append(entries, e)
	}
	return entries, nil
}
