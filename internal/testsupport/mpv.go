package testsupport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeTrack is one entry of a FakeMPV track list.
type FakeTrack struct {
	ID    int64
	Type  string
	Lang  string
	Title string
	// External subtitle file path, set by sub-add.
	Path string
}

// FakeMPV serves a subset of mpv's JSON IPC protocol on a unix socket.
type FakeMPV struct {
	Socket string

	t  testing.TB
	ln net.Listener

	mu       sync.Mutex
	props    map[string]any
	tracks   []FakeTrack
	nextID   int64
	commands [][]string
	conns    map[net.Conn]*sync.Mutex
	notify   chan struct{}
	failures map[string]string
}

// NewFakeMPV listens on a fresh socket and serves until the test ends.
func NewFakeMPV(t testing.TB) *FakeMPV {
	t.Helper()

	// Unix socket paths are limited to ~100 bytes; t.TempDir can exceed that.
	dir, err := os.MkdirTemp("", "mpv")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "ipc.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen on %s: %v", socket, err)
	}
	f := &FakeMPV{
		Socket:   socket,
		t:        t,
		ln:       ln,
		props:    map[string]any{},
		nextID:   1,
		conns:    map[net.Conn]*sync.Mutex{},
		notify:   make(chan struct{}, 1),
		failures: map[string]string{},
	}
	go f.accept()
	t.Cleanup(f.Close)
	return f
}

// SetProperty stores a property value. Use string or int64 values.
func (f *FakeMPV) SetProperty(name string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[name] = value
}

// Property returns a stored property value.
func (f *FakeMPV) Property(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.props[name]
	return v, ok
}

// AddTrack appends a track to the track list and returns its id.
func (f *FakeMPV) AddTrack(track FakeTrack) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if track.ID == 0 {
		track.ID = f.nextID
	}
	if track.ID >= f.nextID {
		f.nextID = track.ID + 1
	}
	f.tracks = append(f.tracks, track)
	return track.ID
}

// Tracks returns a copy of the current track list.
func (f *FakeMPV) Tracks() []FakeTrack {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeTrack(nil), f.tracks...)
}

// FailCommand makes every subsequent command with the given name fail with msg.
func (f *FakeMPV) FailCommand(name, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = msg
}

// Commands returns every command received so far, stringified.
func (f *FakeMPV) Commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.commands))
	for i, cmd := range f.commands {
		out[i] = append([]string(nil), cmd...)
	}
	return out
}

// CommandsNamed filters Commands by command name.
func (f *FakeMPV) CommandsNamed(name string) [][]string {
	var out [][]string
	for _, cmd := range f.Commands() {
		if len(cmd) > 0 && cmd[0] == name {
			out = append(out, cmd)
		}
	}
	return out
}

// WaitForCommand blocks until a command with the given name has been received
// count times in total.
func (f *FakeMPV) WaitForCommand(name string, count int, timeout time.Duration) [][]string {
	f.t.Helper()
	deadline := time.After(timeout)
	for {
		if cmds := f.CommandsNamed(name); len(cmds) >= count {
			return cmds
		}
		select {
		case <-f.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			f.t.Fatalf("timed out waiting for %d %q commands; got %v", count, name, f.Commands())
			return nil
		}
	}
}

// WaitForClient blocks until at least one client is connected.
func (f *FakeMPV) WaitForClient(timeout time.Duration) {
	f.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		n := len(f.conns)
		f.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.t.Fatalf("no client connected within %s", timeout)
}

// Emit broadcasts an event to every connected client.
func (f *FakeMPV) Emit(event string) {
	f.broadcast(map[string]any{"event": event})
}

// Close stops the listener and drops every client connection.
func (f *FakeMPV) Close() {
	_ = f.ln.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.Close()
	}
	f.conns = map[net.Conn]*sync.Mutex{}
}

func (f *FakeMPV) accept() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns[conn] = &sync.Mutex{}
		f.mu.Unlock()
		go f.serve(conn)
	}
}

func (f *FakeMPV) serve(conn net.Conn) {
	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		f.mu.Unlock()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			Command   []any `json:"command"`
			RequestID int64 `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			f.reply(conn, map[string]any{"error": "invalid parameter"})
			continue
		}
		data, errMsg := f.handle(req.Command)
		resp := map[string]any{"request_id": req.RequestID, "error": errMsg}
		if errMsg == "success" && data != nil {
			resp["data"] = data
		}
		f.reply(conn, resp)
	}
}

func (f *FakeMPV) handle(command []any) (any, string) {
	args := make([]string, len(command))
	for i, part := range command {
		args[i] = fmt.Sprint(part)
	}

	f.mu.Lock()
	f.commands = append(f.commands, args)
	failure, failing := "", false
	if len(args) > 0 {
		failure, failing = f.failures[args[0]]
	}
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}

	if len(args) == 0 {
		return nil, "invalid parameter"
	}
	if failing {
		return nil, failure
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch args[0] {
	case "client_name":
		return "ipc_fake", "success"
	case "get_property":
		if len(args) < 2 {
			return nil, "invalid parameter"
		}
		v, ok := f.lookup(args[1])
		if !ok {
			return nil, "property unavailable"
		}
		return v, "success"
	case "get_property_string":
		if len(args) < 2 {
			return nil, "invalid parameter"
		}
		v, ok := f.lookup(args[1])
		if !ok {
			return nil, "property unavailable"
		}
		return fmt.Sprint(v), "success"
	case "set_property_string", "set_property":
		if len(args) < 3 {
			return nil, "invalid parameter"
		}
		f.props[args[1]] = args[2]
		return nil, "success"
	case "sub-add":
		if len(args) < 2 {
			return nil, "invalid parameter"
		}
		track := FakeTrack{ID: f.nextID, Type: "sub", Path: args[1]}
		if len(args) > 3 {
			track.Title = args[3]
		}
		if len(args) > 4 {
			track.Lang = args[4]
		}
		f.nextID++
		f.tracks = append(f.tracks, track)
		return nil, "success"
	case "sub-remove":
		if len(args) < 2 {
			return nil, "invalid parameter"
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, "invalid parameter"
		}
		for i, track := range f.tracks {
			if track.ID == id && track.Type == "sub" {
				f.tracks = append(f.tracks[:i], f.tracks[i+1:]...)
				return nil, "success"
			}
		}
		return nil, "error running command"
	default:
		return nil, "invalid parameter"
	}
}

// lookup resolves a property name, synthesizing track-list entries.
func (f *FakeMPV) lookup(name string) (any, bool) {
	if name == "track-list/count" {
		return int64(len(f.tracks)), true
	}
	if rest, ok := strings.CutPrefix(name, "track-list/"); ok {
		indexText, field, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, false
		}
		index, err := strconv.Atoi(indexText)
		if err != nil || index < 0 || index >= len(f.tracks) {
			return nil, false
		}
		track := f.tracks[index]
		switch field {
		case "id":
			return track.ID, true
		case "type":
			return track.Type, true
		case "lang":
			return track.Lang, track.Lang != ""
		case "title":
			return track.Title, track.Title != ""
		case "external-filename":
			return track.Path, track.Path != ""
		}
		return nil, false
	}
	v, ok := f.props[name]
	return v, ok
}

func (f *FakeMPV) broadcast(msg map[string]any) {
	f.mu.Lock()
	targets := make(map[net.Conn]*sync.Mutex, len(f.conns))
	for conn, mu := range f.conns {
		targets[conn] = mu
	}
	f.mu.Unlock()
	for conn := range targets {
		f.reply(conn, msg)
	}
}

func (f *FakeMPV) reply(conn net.Conn, msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	f.mu.Lock()
	mu := f.conns[conn]
	f.mu.Unlock()
	if mu == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = conn.Write(append(data, '\n'))
}
