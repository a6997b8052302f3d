package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"danmaku/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOnlyOldArtifactDirectories(t *testing.T) {
	base := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldArtifact := filepath.Join(base, DirPrefix+"old")
	recentArtifact := filepath.Join(base, DirPrefix+"recent")
	unrelated := filepath.Join(base, "other-old")
	for _, dir := range []string{oldArtifact, recentArtifact, unrelated} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
	}
	for _, dir := range []string{oldArtifact, unrelated} {
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	result := CleanStale(context.Background(), base, time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldArtifact {
		t.Fatalf("expected only %s removed, got %v", oldArtifact, result.Removed)
	}
	for _, dir := range []string{recentArtifact, unrelated} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist: %v", dir, err)
		}
	}
}
