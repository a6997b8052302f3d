package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"danmaku/internal/artifact"
	"danmaku/internal/config"
	"danmaku/internal/daemon"
	"danmaku/internal/logging"
	"danmaku/internal/preflight"
	"danmaku/internal/services"
)

// StaleArtifactAge is how old a leftover artifact directory must be before
// startup sweeps it away.
const StaleArtifactAge = 24 * time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SkipPreflight attaches without checking binaries and directories first.
	SkipPreflight bool
}

// Run attaches to the configured mpv socket and serves until the player
// shuts down or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "prepare", "create directories", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("danmaku-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}

	sessionID := uuid.NewString()
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Outputs:     []string{"stderr", logPath},
		Development: opts.Development,
		SessionID:   sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	d, err := daemon.New(cfg, logger, daemon.WithSessionID(sessionID))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	// The log pointer, old logs and artifacts belong to whoever holds the lock.
	if err := d.Acquire(); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other danmaku process or point --socket at a different mpv"),
		)
		return err
	}
	defer d.Release()

	pidPath := strings.TrimSuffix(cfg.LockPath(), ".lock") + ".pid"
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update danmaku.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "danmaku-*.log", Exclude: []string{logPath}},
	)
	artifact.CleanStale(signalCtx, cfg.Paths.TempDir, StaleArtifactAge, logger)

	if !opts.SkipPreflight {
		if err := runPreflight(signalCtx, logger, cfg); err != nil {
			return err
		}
	}

	err = d.Serve(signalCtx)
	logger.Info("danmaku daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
		logging.Int64("runs", d.Status().Runs),
	)
	return err
}

func runPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		logger.Info("preflight check",
			logging.String(logging.FieldEventType, "preflight_check"),
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.Bool("optional", result.Optional),
			logging.String("detail", result.Detail),
		)
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	err := services.Wrap(services.ErrConfiguration, "daemon", "preflight", strings.Join(parts, "; "), nil)
	logging.ErrorWithContext(logger, "preflight failed", "preflight_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run danmaku doctor for details"),
	)
	return err
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "danmaku.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
