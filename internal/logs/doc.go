// Package logs reads daemon log files for the CLI.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// polls for appended lines until the caller's context ends. Both open the path
// on every call, so following the danmaku.log pointer keeps working when a new
// daemon run replaces the link.
package logs
