package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is one of debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Outputs lists destinations: "stdout", "stderr" or file paths opened
	// for append. Defaults to stderr.
	Outputs     []string
	Development bool
	SessionID   string
}

type sink struct {
	w        io.Writer
	terminal bool
}

// New builds a logger writing every record to each configured output. Console
// output is coloured only on outputs attached to a terminal.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = "console"
	case "console", "json":
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	sinks, err := openSinks(opts.Outputs)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	source := opts.Development || level.Level() <= slog.LevelDebug

	handlers := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		if format == "json" {
			handlers = append(handlers, newJSONHandler(s.w, level, source))
			continue
		}
		handlers = append(handlers, newConsoleHandler(s.w, level, source, s.terminal))
	}

	var handler slog.Handler = fanout(handlers)
	if len(handlers) == 1 {
		handler = handlers[0]
	}
	logger := slog.New(handler)
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		logger = logger.With(String(FieldSessionID, id))
	}
	return logger, nil
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openSinks(outputs []string) ([]sink, error) {
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	seen := make(map[string]bool, len(outputs))
	sinks := make([]sink, 0, len(outputs))
	for _, raw := range outputs {
		target := strings.TrimSpace(raw)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		switch target {
		case "stdout":
			sinks = append(sinks, sink{w: os.Stdout, terminal: isatty.IsTerminal(os.Stdout.Fd())})
		case "stderr":
			sinks = append(sinks, sink{w: os.Stderr, terminal: isatty.IsTerminal(os.Stderr.Fd())})
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, fmt.Errorf("create log dir for %s: %w", target, err)
			}
			file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", target, err)
			}
			sinks = append(sinks, sink{w: file})
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, sink{w: os.Stderr, terminal: isatty.IsTerminal(os.Stderr.Fd())})
	}
	return sinks, nil
}

// fanout forwards each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
