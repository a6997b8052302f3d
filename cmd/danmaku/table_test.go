package main

import (
	"strings"
	"testing"
)

func TestRenderTableUppercasesHeadersOnly(t *testing.T) {
	out := renderTable([]string{"Check", "Status"}, [][]string{{"mpv IPC socket", "Legacy Numeric"}}, nil)

	requireContains(t, out, "CHECK")
	requireContains(t, out, "STATUS")
	requireContains(t, out, "mpv IPC socket")
	requireContains(t, out, "Legacy Numeric")
	if strings.Contains(out, "Status") {
		t.Fatalf("expected header to be upper-cased, got %q", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Id", "Title", "Lang"}, [][]string{{"1"}}, []columnAlignment{alignRight})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected border, header, separator, row, border; got %d lines:\n%s", len(lines), out)
	}
}
