package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRendersTable(t *testing.T) {
	out, _, err := runCLI(t, []string{"resolve",
		"https://www.bilibili.com/video/av170001",
		"https://www.youtube.com/watch?v=abc",
	}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "https://www.bilibili.com/video/BV17x411w7KC")
	requireContains(t, out, "Legacy Numeric")
	requireContains(t, out, "unsupported_host")
}

func TestResolveJSON(t *testing.T) {
	out, _, err := runCLI(t, []string{"resolve", "--json",
		"https://bilibili.com/video/BV1xx411c7mD/?p=2&spm_id_from=x",
		"https://www.bilibili.com/video/av2251799813685248",
	}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	var results []resolveOutput
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.Action != "resolve" || first.Kind != "canonical" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.ResolvedURL != "https://www.bilibili.com/video/BV1xx411c7mD?p=2" {
		t.Fatalf("unexpected resolved url %q", first.ResolvedURL)
	}
	if first.Token != "BV1xx411c7mD" {
		t.Fatalf("unexpected token %q", first.Token)
	}

	second := results[1]
	if second.Action != "skip" || second.Reason != "codec_out_of_range" {
		t.Fatalf("expected codec skip, got %+v", second)
	}
	if second.ResolvedURL != "" {
		t.Fatalf("skip must not carry a resolved url, got %q", second.ResolvedURL)
	}
}

func TestResolveIgnoresBrokenConfig(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"resolve", "https://www.bilibili.com/video/av2"}, broken); err != nil {
		t.Fatalf("resolve should not load config: %v", err)
	}
}

func TestResolveRequiresArgument(t *testing.T) {
	if _, _, err := runCLI(t, []string{"resolve"}, ""); err == nil {
		t.Fatal("expected error without arguments")
	}
}
