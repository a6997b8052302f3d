// Package tracks reads the player's track list and retires a previously
// generated danmaku subtitle before a new one is installed.
//
// A generated track is recognised by three sentinel values: type "sub",
// language "danmaku" and title "xml". The pipeline installs its own tracks with
// the same tags so each run retires the one before it.
package tracks
