package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose modification time
// is older than retentionDays and returns the removed paths. A retentionDays
// value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) []string {
	if retentionDays <= 0 {
		return nil
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	excluded := exclusions(targets)

	var removed []string
	for _, target := range targets {
		for _, path := range expired(target, cutoff) {
			if _, skip := excluded[path]; skip {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			removed = append(removed, path)
		}
	}
	if len(removed) > 0 {
		logger.Info("old logs pruned",
			Int("count", len(removed)),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func exclusions(targets []RetentionTarget) map[string]struct{} {
	out := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs, ok := absolute(path); ok {
				out[abs] = struct{}{}
			}
		}
	}
	return out
}

// expired lists regular files in target older than cutoff.
func expired(target RetentionTarget, cutoff time.Time) []string {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if abs, ok := absolute(filepath.Join(dir, entry.Name())); ok {
			paths = append(paths, abs)
		}
	}
	return paths
}

func absolute(path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, true
	}
	return abs, true
}
