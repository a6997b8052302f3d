// Package config reads danmaku.toml.
//
// Load looks for an explicit path, then the user config file, then
// ./danmaku.toml, and falls back to defaults when none exists. Paths are
// "~"-expanded and made absolute, DANMAKU_MPV_SOCKET and DANMAKU_CONVERTER
// override the file, and Validate rejects the first invalid field.
// LockPath derives the per-socket single-instance lock file.
package config
