// Package main hosts the danmaku CLI entrypoint and command graph.
//
// "danmaku run" attaches the daemon to one mpv IPC socket. The remaining
// commands are offline helpers: classify URLs, convert identifiers, inspect
// the player's track list, check the environment, and scaffold configuration.
// Behaviour lives in internal packages; commands here only parse flags and
// render output.
package main
