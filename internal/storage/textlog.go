package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TextLog appends timestamped human-readable lines to a single file.
type TextLog struct {
	path string
	mu   sync.Mutex
}

func NewTextLog(path string) *TextLog {
	return &TextLog{path: path}
}

// WriteLine appends one line, prefixed with an ISO-8601 timestamp.
func (t *TextLog) WriteLine(message string) error {
	dir := filepath.Dir(t.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	stamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if _, err := fmt.Fprintf(file, "[%s] %s\n", stamp, message); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	return nil
}
