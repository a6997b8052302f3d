package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.MPV.Socket)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[converter]")
	requireContains(t, out, "danmu2ass")
}

func TestConfigPathReportsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.home, "absent.toml")

	out, errOut, err := runCLI(t, []string{"config", "path"}, missing)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != missing {
		t.Fatalf("expected %s, got %q", missing, out)
	}
	requireContains(t, errOut, "does not exist")
}

func TestSocketFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	socket := filepath.Join(env.home, "custom.sock")

	out, _, err := runCLI(t, []string{"--socket", socket, "config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, socket)
}
