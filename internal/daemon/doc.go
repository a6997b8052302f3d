// Package daemon attaches danmaku to one mpv instance and keeps it attached
// until the player shuts down or the process is signalled.
//
// A Daemon owns a flock keyed by the IPC socket path, so two daemons can
// never reconcile the same player's subtitle tracks. Serve dials the socket
// and hands the connection to the pipeline orchestrator; process wiring
// (signals, log files, preflight) lives in daemonrun.
package daemon
