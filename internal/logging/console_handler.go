package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

var levelTags = []struct {
	min   slog.Level
	tag   string
	color text.Colors
}{
	{slog.LevelError, "ERR", text.Colors{text.FgHiRed, text.Bold}},
	{slog.LevelWarn, "WRN", text.Colors{text.FgYellow}},
	{slog.LevelInfo, "INF", text.Colors{text.FgGreen}},
	{slog.LevelDebug - 100, "DBG", text.Colors{text.FgHiBlack}},
}

// consoleHandler writes one human readable line per record:
//
//	2026-10-16 21:04:05 INF [pipeline] subtitle installed run_id=... path=...
//
// Attributes bound through WithAttrs are rendered once and reused.
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	color  bool
	source bool

	component string
	prefix    string
	bound     []byte
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source, color bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, source: source, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	component := h.component
	var fields []byte
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == FieldComponent && h.prefix == "" {
			component = a.Value.Resolve().String()
			return true
		}
		fields = appendField(fields, h.prefix, a)
		return true
	})

	line := make([]byte, 0, 96+len(h.bound)+len(fields))
	line = append(line, h.paint(text.Colors{text.FgHiBlack}, ts.Local().Format(consoleTimeLayout))...)
	line = append(line, ' ')
	line = append(line, h.levelTag(r.Level)...)
	if component != "" {
		line = append(line, " ["...)
		line = append(line, component...)
		line = append(line, ']')
	}
	line = append(line, ' ')
	if msg := strings.TrimSpace(r.Message); msg != "" {
		line = append(line, msg...)
	} else {
		line = append(line, "-"...)
	}
	if h.source && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			line = append(line, " ("...)
			line = append(line, filepath.Base(src.File)...)
			line = append(line, ':')
			line = strconv.AppendInt(line, int64(src.Line), 10)
			line = append(line, ')')
		}
	}
	line = append(line, h.bound...)
	line = append(line, fields...)
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		if a.Key == FieldComponent && h.prefix == "" {
			next.component = a.Value.Resolve().String()
			continue
		}
		next.bound = appendField(next.bound, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) levelTag(level slog.Level) string {
	for _, lt := range levelTags {
		if level >= lt.min {
			return h.paint(lt.color, lt.tag)
		}
	}
	return "???"
}

func (h *consoleHandler) paint(colors text.Colors, s string) string {
	if !h.color {
		return s
	}
	return colors.Sprint(s)
}

// appendField renders a as " key=value", flattening groups into dotted keys.
func appendField(dst []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = appendField(dst, inner, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	dst = append(dst, ' ')
	dst = append(dst, prefix...)
	dst = append(dst, a.Key...)
	dst = append(dst, '=')
	return append(dst, renderValue(a.Value)...)
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
