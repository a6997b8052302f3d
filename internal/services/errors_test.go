package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"danmaku/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "convert", "danmu2ass", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"convert", "danmu2ass", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestEventTypeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: "run_completed"},
		{err: services.Wrap(services.ErrTimeout, "convert", "", "", nil), want: "run_timed_out"},
		{err: services.Wrap(services.ErrExternalTool, "convert", "", "", nil), want: "converter_failed"},
		{err: services.Wrap(services.ErrValidation, "classify", "", "", nil), want: "identifier_invalid"},
		{err: fmt.Errorf("install: %w", services.ErrHost), want: "host_call_failed"},
		{err: errors.New("disk full"), want: "run_failed"},
	}
	for _, tc := range cases {
		if got := services.EventType(tc.err); got != tc.want {
			t.Fatalf("EventType(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWrapExposesStageDetail(t *testing.T) {
	err := services.Wrap(services.ErrHost, "install", "sub-add", "", nil)
	var tagged *services.Error
	if !errors.As(err, &tagged) {
		t.Fatalf("expected *services.Error, got %T", err)
	}
	if tagged.Stage != "install" || tagged.Operation != "sub-add" {
		t.Fatalf("unexpected detail: %+v", tagged)
	}
	if got := err.Error(); got != "host error: install: sub-add" {
		t.Fatalf("unexpected message %q", got)
	}
}
