package mpv_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"danmaku/internal/mpv"
	"danmaku/internal/services"
	"danmaku/internal/testsupport"
)

func dial(t *testing.T) (*mpv.Client, *testsupport.FakeMPV) {
	t.Helper()
	fake := testsupport.NewFakeMPV(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := mpv.Dial(ctx, fake.Socket)
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	fake.WaitForClient(2 * time.Second)
	return client, fake
}

func TestDialFailsWithoutServer(t *testing.T) {
	if _, err := mpv.Dial(context.Background(), "/nonexistent/mpv.sock"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestPropertyRoundTrips(t *testing.T) {
	client, fake := dial(t)
	ctx := context.Background()
	fake.SetProperty("path", "https://www.bilibili.com/video/BV1xx411c7mD")
	fake.AddTrack(testsupport.FakeTrack{Type: "video"})

	path, err := client.GetString(ctx, "path")
	if err != nil {
		t.Fatalf("GetString returned error: %v", err)
	}
	if path != "https://www.bilibili.com/video/BV1xx411c7mD" {
		t.Fatalf("unexpected path %q", path)
	}

	count, err := client.GetInt(ctx, "track-list/count")
	if err != nil || count != 1 {
		t.Fatalf("GetInt = %d, %v; want 1", count, err)
	}

	if err := client.SetString(ctx, "sub-auto", "exact"); err != nil {
		t.Fatalf("SetString returned error: %v", err)
	}
	if v, _ := fake.Property("sub-auto"); v != "exact" {
		t.Fatalf("sub-auto = %v, want exact", v)
	}
	cmds := fake.CommandsNamed("set_property_string")
	if len(cmds) != 1 || cmds[0][1] != "sub-auto" || cmds[0][2] != "exact" {
		t.Fatalf("unexpected set commands %v", cmds)
	}
}

func TestSubtitleCommands(t *testing.T) {
	client, fake := dial(t)
	ctx := context.Background()

	if err := client.AddSubtitle(ctx, "/tmp/danmaku-x/BV1xx411c7mD.ass", "danmaku", "xml"); err != nil {
		t.Fatalf("AddSubtitle returned error: %v", err)
	}
	adds := fake.CommandsNamed("sub-add")
	want := []string{"sub-add", "/tmp/danmaku-x/BV1xx411c7mD.ass", "select", "xml", "danmaku"}
	if len(adds) != 1 || fmt.Sprint(adds[0]) != fmt.Sprint(want) {
		t.Fatalf("sub-add = %v, want %v", adds, want)
	}

	tracks := fake.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected one track, got %v", tracks)
	}
	lang, err := client.GetString(ctx, "track-list/0/lang")
	if err != nil || lang != "danmaku" {
		t.Fatalf("lang = %q, %v", lang, err)
	}
	id, err := client.GetInt(ctx, "track-list/0/id")
	if err != nil || id != tracks[0].ID {
		t.Fatalf("id = %d, %v; want %d", id, err, tracks[0].ID)
	}

	if err := client.RemoveSubtitle(ctx, id); err != nil {
		t.Fatalf("RemoveSubtitle returned error: %v", err)
	}
	if len(fake.Tracks()) != 0 {
		t.Fatalf("expected track removed, got %v", fake.Tracks())
	}

	err = client.RemoveSubtitle(ctx, id)
	if !errors.Is(err, mpv.ErrCommandFailed) || !errors.Is(err, services.ErrHost) {
		t.Fatalf("expected command failure, got %v", err)
	}
}

func TestMissingPropertyMapsToNotFound(t *testing.T) {
	client, _ := dial(t)
	_, err := client.GetString(context.Background(), "track-list/3/title")
	if !errors.Is(err, mpv.ErrPropertyUnavailable) {
		t.Fatalf("expected ErrPropertyUnavailable, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected services.ErrNotFound in chain, got %v", err)
	}
}

func TestEventsAreDeliveredInOrder(t *testing.T) {
	client, fake := dial(t)
	fake.Emit("start-file")
	fake.Emit(mpv.EventFileLoaded)
	fake.Emit(mpv.EventShutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var names []string
	for range 3 {
		ev, err := client.WaitEvent(ctx)
		if err != nil {
			t.Fatalf("WaitEvent returned error: %v", err)
		}
		names = append(names, ev.Name)
	}
	if fmt.Sprint(names) != "[start-file file-loaded shutdown]" {
		t.Fatalf("unexpected event order %v", names)
	}
}

func TestWaitEventHonoursContext(t *testing.T) {
	client, _ := dial(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.WaitEvent(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestConnectionLossEndsWaitEvent(t *testing.T) {
	client, fake := dial(t)
	fake.Emit(mpv.EventShutdown)
	time.Sleep(20 * time.Millisecond)
	fake.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := client.WaitEvent(ctx)
	if err != nil || !ev.IsShutdown() {
		t.Fatalf("expected queued shutdown before disconnect, got %v %v", ev, err)
	}
	if _, err := client.WaitEvent(ctx); !errors.Is(err, mpv.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := client.GetString(ctx, "path"); !errors.Is(err, mpv.ErrClosed) {
		t.Fatalf("expected ErrClosed from request, got %v", err)
	}
}

func TestConcurrentRequests(t *testing.T) {
	client, fake := dial(t)
	for i := range 8 {
		fake.SetProperty(fmt.Sprintf("user-data/p%d", i), fmt.Sprintf("v%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("user-data/p%d", i)
			got, err := client.GetString(context.Background(), name)
			if err != nil {
				errs <- err
				return
			}
			if got != fmt.Sprintf("v%d", i) {
				errs <- fmt.Errorf("%s = %q", name, got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDialRequiresHandshakeReply(t *testing.T) {
	dir, err := os.MkdirTemp("", "mute")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "ipc.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case conn := <-accepted:
				_ = conn.Close()
			default:
				return
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := mpv.Dial(ctx, socket); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected handshake deadline, got %v", err)
	}
}

func TestCanceledCallIsNeverSent(t *testing.T) {
	client, fake := dial(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.SetString(ctx, "sub-auto", "exact"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	fake.SetProperty("path", "x")
	if _, err := client.GetString(context.Background(), "path"); err != nil {
		t.Fatalf("GetString returned error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if cmds := fake.CommandsNamed("set_property_string"); len(cmds) != 0 {
		t.Fatalf("canceled command reached mpv: %v", cmds)
	}
}

func TestDialPerformsHandshake(t *testing.T) {
	_, fake := dial(t)
	if cmds := fake.CommandsNamed("client_name"); len(cmds) != 1 {
		t.Fatalf("expected one client_name handshake, got %v", fake.Commands())
	}
}
