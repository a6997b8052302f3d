// Package logging builds the slog loggers used by the daemon and the CLI.
//
// New writes every record to each configured output ("stdout", "stderr" or
// a file). The console format renders
//
//	2026-10-16 21:04:05 INF [pipeline] subtitle installed run_id=... path=...
//
// and is coloured only on terminals; the JSON format uses stable "ts" and
// lowercase "level" keys. WithContext attaches run, stage and mpv request ids
// carried on a context. WarnWithContext and ErrorWithContext guarantee the
// event_type and error_hint fields operators filter on.
package logging
