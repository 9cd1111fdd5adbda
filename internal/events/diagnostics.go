package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultMaxLogSize is the rotation threshold for the diagnostics log (20MB).
const DefaultMaxLogSize = 20 * 1024 * 1024

// DiagnosticEntry is one line of the diagnostics JSONL log.
type DiagnosticEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Lane      string         `json:"lane,omitempty"`
	Task      string         `json:"task,omitempty"`
	Request   string         `json:"request,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// DiagnosticsLogger records every bus event to an append-only JSONL file
// with size-based rotation. The format is advisory only and carries no
// compatibility contract.
type DiagnosticsLogger struct {
	mu          sync.Mutex
	file        *os.File
	currentSize int64
	maxSize     int64
	logPath     string
	unsubscribe func()
}

// NewDiagnosticsLogger opens (or creates) the log at logPath.
func NewDiagnosticsLogger(logPath string, maxSize int64) (*DiagnosticsLogger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &DiagnosticsLogger{logPath: logPath, maxSize: maxSize}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// Attach subscribes the logger to every event on bus. Detach by closing
// the logger.
func (l *DiagnosticsLogger) Attach(bus *Bus) {
	l.unsubscribe = bus.SubscribeAll(func(e Event) {
		_ = l.Record(e)
	})
}

// Record writes one event as a JSONL line, rotating first if the file
// would exceed the size limit.
func (l *DiagnosticsLogger) Record(e Event) error {
	entry := DiagnosticEntry{
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		Details:   e.Data,
	}
	if lane, ok := e.Data["lane"].(string); ok {
		entry.Lane = lane
	}
	if task, ok := e.Data["task"].(string); ok {
		entry.Task = task
	}
	if req, ok := e.Data["request"].(string); ok {
		entry.Request = req
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentSize+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate diagnostics log: %w", err)
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	l.currentSize += int64(n)
	return nil
}

// Close detaches from the bus and closes the file.
func (l *DiagnosticsLogger) Close() error {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *DiagnosticsLogger) open() error {
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open diagnostics log: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat diagnostics log: %w", err)
	}
	l.file = file
	l.currentSize = stat.Size()
	return nil
}

// rotate renames the current file aside with a timestamp suffix and opens
// a fresh one. Caller holds mu.
func (l *DiagnosticsLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close before rotate: %w", err)
	}
	rotated := fmt.Sprintf("%s.%s", l.logPath, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(l.logPath, rotated); err != nil {
		return fmt.Errorf("rename rotated log: %w", err)
	}
	return l.open()
}
