package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"danmaku/internal/config"
)

// ConfigOption adjusts a test configuration before its directories exist.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns a config rooted in a fresh t.TempDir: temp, log and
// runtime directories under it, an mpv socket path beside them, and short
// timeouts. Options run in order, then the directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		TempDir:    filepath.Join(root, "tmp"),
		LogDir:     filepath.Join(root, "logs"),
		RuntimeDir: filepath.Join(root, "run"),
	}
	cfg.MPV.Socket = filepath.Join(root, "mpv.sock")
	cfg.MPV.ConnectTimeoutSeconds = 1
	cfg.Converter.TimeoutSeconds = 10

	for _, opt := range opts {
		opt(t, &cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create config directories: %v", err)
	}
	return &cfg
}

// BaseDir returns the temp root backing a config built by NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempDir)
}

func WithSocket(path string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.MPV.Socket = path }
}

func WithConverter(binary string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Converter.Binary = binary }
}

// WithRetainedArtifacts keeps installed subtitle files until the next run.
func WithRetainedArtifacts() ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Subtitles.RetainUntilNext = true }
}

// WithStubbedBinaries puts no-op executables with the given names first on
// PATH for the rest of the test. With no names, the configured converter is
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		if len(names) == 0 {
			names = []string{cfg.ConverterBinary()}
		}
		binDir := filepath.Join(BaseDir(cfg), "bin")
		for _, name := range names {
			WriteScript(t, filepath.Join(binDir, name), "exit 0")
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
