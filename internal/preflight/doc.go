// Package preflight provides readiness checks for the paths, binaries and
// player socket danmaku depends on.
//
// The daemon runs RunAll before attaching to mpv and refuses to start when a
// required check fails. The CLI "danmaku doctor" command renders the same
// results as a table.
package preflight
