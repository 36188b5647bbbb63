package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pumpscope/internal/model"
)

// CpiLogSink writes each entry as one pretty-printed JSON file and keeps
// the directory at a bounded file count by deleting the oldest files
// after every append. The prune is not atomic with the write: a crash in
// between can transiently exceed the limit, and the next append corrects
// it.
type CpiLogSink struct {
	dir      string
	maxFiles int
	mu       sync.Mutex
}

func NewCpiLogSink(dir string, maxFiles int) *CpiLogSink {
	return &CpiLogSink{dir: dir, maxFiles: maxFiles}
}

// Append writes the entry as <sig[:8]>_<unix-millis>.json and prunes.
func (s *CpiLogSink) Append(entry model.CpiLogEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	shortSig := entry.Signature
	if len(shortSig) > 8 {
		shortSig = shortSig[:8]
	}
	name := fmt.Sprintf("%s_%d.json", shortSig, time.Now().UnixMilli())

	content, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}

	return s.prune()
}

func (s *CpiLogSink) prune() error {
	if s.maxFiles <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("list log dir: %w", err)
	}
	if len(matches) <= s.maxFiles {
		return nil
	}

	type fileAge struct {
		path    string
		modTime time.Time
	}
	files := make([]fileAge, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, fileAge{path: path, modTime: info.ModTime()})
	}
	// Stat can fail for entries removed concurrently; recheck after skips.
	if len(files) <= s.maxFiles {
		return nil
	}

	sort.Slice(files, func(a, b int) bool {
		return files[a].modTime.Before(files[b].modTime)
	})

	for _, f := range files[:len(files)-s.maxFiles] {
		if err := os.Remove(f.path); err != nil {
			return fmt.Errorf("remove old log file: %w", err)
		}
	}
	return nil
}
