// Package mpv is a client for mpv's JSON IPC protocol.
//
// mpv exposes the protocol on a unix socket when started with
// --input-ipc-server=<path>. The wire handling (request ids, reply routing,
// event fan-out) comes from github.com/dexterlb/mpvipc; Client layers
// context cancellation, an ordered unbounded event queue, typed property
// helpers and error markers on top. Client is safe for concurrent use: one
// goroutine can block in WaitEvent while others issue property calls.
package mpv
