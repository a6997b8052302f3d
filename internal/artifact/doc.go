// Package artifact manages the per-run scratch directory holding a generated
// subtitle file.
//
// Each Artifact owns one freshly created danmaku-<uuid> directory and one file
// inside it. Release removes the whole directory exactly once, whatever state
// the run ended in. CleanStale sweeps directories abandoned by a daemon that
// exited without releasing them.
package artifact
