package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateWriteRelease(t *testing.T) {
	base := t.TempDir()
	mgr := Manager{BaseDir: base}

	art, err := mgr.Create("BV1xx411c7mD")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if filepath.Dir(art.Dir()) != base || !strings.HasPrefix(filepath.Base(art.Dir()), DirPrefix) {
		t.Fatalf("unexpected artifact dir %q", art.Dir())
	}
	if art.Path() != filepath.Join(art.Dir(), "BV1xx411c7mD.ass") {
		t.Fatalf("unexpected artifact path %q", art.Path())
	}

	payload := []byte("[Script Info]\nTitle: danmaku\n")
	if err := art.Write(payload); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := os.ReadFile(art.Path())
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("artifact content = %q, want %q", got, payload)
	}
	if err := art.Write(payload); err != ErrWritten {
		t.Fatalf("expected ErrWritten on second write, got %v", err)
	}

	if err := art.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if _, err := os.Stat(art.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected artifact dir to be removed, stat err %v", err)
	}
	if err := art.Release(); err != nil {
		t.Fatalf("second Release returned error: %v", err)
	}
}

func TestReleaseWithoutWrite(t *testing.T) {
	art, err := Manager{BaseDir: t.TempDir()}.Create("av170001")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := art.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if _, err := os.Stat(art.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected artifact dir to be removed, stat err %v", err)
	}
	if err := art.Write([]byte("late")); err == nil {
		t.Fatal("expected write after release to fail")
	}
}

func TestCreateUsesDistinctDirectories(t *testing.T) {
	mgr := Manager{BaseDir: t.TempDir()}
	first, err := mgr.Create("same")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer first.Release()
	second, err := mgr.Create("same")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer second.Release()
	if first.Dir() == second.Dir() {
		t.Fatalf("expected distinct directories, both %q", first.Dir())
	}
}

func TestCreateRemovesDirectoryWhenFileFails(t *testing.T) {
	base := t.TempDir()
	// A 300 byte component exceeds NAME_MAX on common filesystems.
	_, err := Manager{BaseDir: base}.Create(strings.Repeat("x", 300))
	if err == nil {
		t.Fatal("expected file creation to fail")
	}
	entries, readErr := os.ReadDir(base)
	if readErr != nil {
		t.Fatalf("read base dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover directories, found %d", len(entries))
	}
}

func TestCreateFailsForMissingBase(t *testing.T) {
	_, err := Manager{BaseDir: filepath.Join(t.TempDir(), "missing")}.Create("x")
	if err == nil {
		t.Fatal("expected error for missing base dir")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		hint string
		ext  string
		want string
	}{
		{"av170001", "", "av170001.ass"},
		{"movie.mp4", "ass", "movie.ass"},
		{"clip.xml", ".ssa", "clip.ssa"},
		{"a/b:c", "ass", "a-b-c.ass"},
		{"", "ass", "danmaku.ass"},
		{"..", "ass", "danmaku.ass"},
		{".hidden", "ass", "danmaku.ass"},
	}
	for _, tc := range tests {
		if got := fileName(tc.hint, tc.ext); got != tc.want {
			t.Errorf("fileName(%q, %q) = %q, want %q", tc.hint, tc.ext, got, tc.want)
		}
	}
}
