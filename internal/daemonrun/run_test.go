package daemonrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"danmaku/internal/config"
	"danmaku/internal/daemon"
	"danmaku/internal/services"
	"danmaku/internal/testsupport"
)

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func runUntilShutdown(t *testing.T, fake *testsupport.FakeMPV, cfg *config.Config) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- Run(context.Background(), cfg, Options{LogLevel: "error"}) }()

	// Preflight opens its own short connection first; keep announcing shutdown
	// until the daemon's session sees it.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			fake.Emit("shutdown")
		case <-deadline:
			t.Fatal("Run did not return")
			return nil
		}
	}
}

func TestRunServesUntilShutdown(t *testing.T) {
	fake := testsupport.NewFakeMPV(t)
	fake.SetProperty("mpv-version", "mpv 0.38.0")
	cfg := testsupport.NewConfig(t,
		testsupport.WithSocket(fake.Socket),
		testsupport.WithStubbedBinaries(),
	)
	cfg.Logging.RetentionDays = 7

	staleDir := filepath.Join(cfg.Paths.TempDir, "danmaku-stale")
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatal(err)
	}
	age(t, staleDir, 48*time.Hour)
	oldLog := filepath.Join(cfg.Paths.LogDir, "danmaku-20200101T000000.000Z.log")
	if err := os.WriteFile(oldLog, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	age(t, oldLog, 30*24*time.Hour)

	if err := runUntilShutdown(t, fake, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(staleDir); !os.IsNotExist(err) {
		t.Fatalf("expected stale artifact directory removed, stat err=%v", err)
	}
	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Fatalf("expected old log pruned, stat err=%v", err)
	}
	target, err := os.Readlink(filepath.Join(cfg.Paths.LogDir, "danmaku.log"))
	if err != nil {
		t.Fatalf("read log pointer: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(target), "danmaku-") || target == oldLog {
		t.Fatalf("unexpected log pointer target %s", target)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected current log file: %v", err)
	}
	pidPath := strings.TrimSuffix(cfg.LockPath(), ".lock") + ".pid"
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed on exit, stat err=%v", err)
	}
}

func TestRunFailsPreflightWithoutConverter(t *testing.T) {
	fake := testsupport.NewFakeMPV(t)
	fake.SetProperty("mpv-version", "mpv 0.38.0")
	cfg := testsupport.NewConfig(t,
		testsupport.WithSocket(fake.Socket),
		testsupport.WithConverter("clearly-not-present-binary"),
	)

	err := Run(context.Background(), cfg, Options{LogLevel: "error"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "danmu2ass") {
		t.Fatalf("expected converter named in error, got %v", err)
	}
}

func TestRunLeavesSharedStateAloneWhenLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 7

	holder, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := holder.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(holder.Release)

	current := filepath.Join(cfg.Paths.LogDir, "danmaku-20260101T000000.000Z.log")
	oldLog := filepath.Join(cfg.Paths.LogDir, "danmaku-20200101T000000.000Z.log")
	for _, p := range []string{current, oldLog} {
		if err := os.WriteFile(p, []byte("log\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	age(t, oldLog, 30*24*time.Hour)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, current); err != nil {
		t.Fatalf("seed log pointer: %v", err)
	}

	err = Run(context.Background(), cfg, Options{LogLevel: "error", SkipPreflight: true})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	target, err := os.Readlink(filepath.Join(cfg.Paths.LogDir, "danmaku.log"))
	if err != nil {
		t.Fatalf("read log pointer: %v", err)
	}
	if target != current {
		t.Fatalf("expected log pointer to stay on %s, got %s", current, target)
	}
	if _, err := os.Stat(oldLog); err != nil {
		t.Fatalf("expected old log kept while another daemon runs: %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestEnsureCurrentLogPointerReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "danmaku-a.log")
	second := filepath.Join(dir, "danmaku-b.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	target, err := os.Readlink(filepath.Join(dir, "danmaku.log"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != second {
		t.Fatalf("expected pointer to %s, got %s", second, target)
	}
}
