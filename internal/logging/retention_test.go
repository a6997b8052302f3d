package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("log\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "danmaku-old.log")
	fresh := filepath.Join(dir, "danmaku-fresh.log")
	current := filepath.Join(dir, "danmaku-current.log")
	other := filepath.Join(dir, "notes.txt")
	writeAged(t, old, 10*24*time.Hour)
	writeAged(t, fresh, time.Hour)
	writeAged(t, current, 10*24*time.Hour)
	writeAged(t, other, 10*24*time.Hour)
	if err := os.Symlink(old, filepath.Join(dir, "danmaku.log")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	removed := CleanupOldLogs(NewNop(), 7, RetentionTarget{
		Dir:     dir,
		Pattern: "danmaku-*.log",
		Exclude: []string{current},
	})

	if len(removed) != 1 || removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, removed)
	}
	for _, keep := range []string{fresh, current, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "danmaku-old.log")
	writeAged(t, old, 100*24*time.Hour)

	if removed := CleanupOldLogs(nil, 0, RetentionTarget{Dir: dir}); removed != nil {
		t.Fatalf("expected no pruning, got %v", removed)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("expected file kept: %v", err)
	}
}

func TestCleanupOldLogsMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	if removed := CleanupOldLogs(nil, 1, RetentionTarget{Dir: missing}, RetentionTarget{}); len(removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", removed)
	}
}
