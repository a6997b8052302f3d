// Package pipeline drives one danmaku subtitle run per loaded video.
//
// The Orchestrator reads host events in a single loop. A media-loaded event
// starts a run on a worker goroutine: read the media path, classify it, retire
// the previous generated track, create a scratch artifact, run the converter,
// write its output and install the result as a subtitle track. A newer
// media-loaded event or a shutdown cancels the run in flight and waits for it,
// so at most one run exists at a time and its artifact is always released.
//
// Run failures are logged and never end the loop. Only a failing event source
// is fatal.
package pipeline
