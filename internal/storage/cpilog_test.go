package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pumpscope/internal/model"
)

func TestAppendWritesFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewCpiLogSink(dir, 10)

	entry := model.CpiLogEntry{
		TransactionType: "Buy",
		Mint:            "M",
		TokenAmount:     1000,
		Signature:       "5KtPn1LGuxhFiwjxErkxTb7XxtLVYUBe6Cn33ej7ATNVyCEbvBwA",
	}
	if err := sink.Append(entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("file count mismatch: %d", len(matches))
	}

	name := filepath.Base(matches[0])
	if !strings.HasPrefix(name, "5KtPn1LG_") {
		t.Fatalf("filename prefix mismatch: %s", name)
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got model.CpiLogEntry
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TransactionType != "Buy" || got.TokenAmount != 1000 {
		t.Fatalf("entry mismatch: %+v", got)
	}
}

func TestPruneRemovesOldest(t *testing.T) {
	dir := t.TempDir()
	sink := NewCpiLogSink(dir, 3)

	for i, sig := range []string{"aaaaaaaa1", "bbbbbbbb1", "cccccccc1"} {
		if err := sink.Append(model.CpiLogEntry{Signature: sig}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "aaaaaaaa_*.json"))
	if len(matches) != 1 {
		t.Fatalf("first file missing: %v", matches)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(matches[0], old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := sink.Append(model.CpiLogEntry{Signature: "dddddddd1"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	remaining, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(remaining) != 3 {
		t.Fatalf("retention mismatch: %d files", len(remaining))
	}
	for _, path := range remaining {
		if strings.HasPrefix(filepath.Base(path), "aaaaaaaa_") {
			t.Fatalf("oldest file survived prune")
		}
	}
}

func TestPruneSkipsUnstatableEntries(t *testing.T) {
	dir := t.TempDir()
	sink := NewCpiLogSink(dir, 3)

	if err := sink.Append(model.CpiLogEntry{Signature: "aaaaaaaa1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	for _, name := range []string{"w.json", "x.json", "y.json", "z.json"} {
		if err := os.Symlink(filepath.Join(dir, "missing-target"), filepath.Join(dir, name)); err != nil {
			t.Fatalf("symlink: %v", err)
		}
	}

	if err := sink.Append(model.CpiLogEntry{Signature: "bbbbbbbb1"}); err != nil {
		t.Fatalf("append past dangling entries: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "[ab]*.json"))
	if len(matches) != 2 {
		t.Fatalf("real files lost: %v", matches)
	}
}

func TestPruneDisabled(t *testing.T) {
	dir := t.TempDir()
	sink := NewCpiLogSink(dir, 0)

	for _, sig := range []string{"aaaaaaaa1", "bbbbbbbb1", "cccccccc1", "dddddddd1"} {
		if err := sink.Append(model.CpiLogEntry{Signature: sig}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(matches) != 4 {
		t.Fatalf("expected all files kept, got %d", len(matches))
	}
}

func TestTextLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.log")
	log := NewTextLog(path)

	if err := log.WriteLine("first"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := log.WriteLine("second"); err != nil {
		t.Fatalf("write: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count mismatch: %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "first") || !strings.HasSuffix(lines[1], "second") {
		t.Fatalf("line content mismatch: %v", lines)
	}
}
