package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"danmaku/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
	RuntimeDir string `toml:"runtime_dir"`
}

// MPV describes how the daemon reaches the player's JSON IPC server.
type MPV struct {
	Socket                string `toml:"socket"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
}

// Converter configures the external danmaku-to-ASS converter.
type Converter struct {
	Binary         string   `toml:"binary"`
	ExtraArgs      []string `toml:"extra_args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Subtitles contains configuration for the generated subtitle track.
type Subtitles struct {
	Extension string `toml:"extension"`
	// AutoSelect is written to mpv's sub-auto property before installing.
	AutoSelect string `toml:"auto_select"`
	// RetainUntilNext keeps the installed file on disk until the next run or
	// shutdown instead of deleting it as soon as mpv has loaded it.
	RetainUntilNext bool `toml:"retain_until_next"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for danmaku.
//
// Configuration sections by subsystem:
//   - Paths: scratch, log, and lock directories
//   - MPV: IPC socket location and dial timeout
//   - Converter: danmu2ass binary, extra flags, and run timeout
//   - Subtitles: generated file extension and retention
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	MPV       MPV       `toml:"mpv"`
	Converter Converter `toml:"converter"`
	Subtitles Subtitles `toml:"subtitles"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath picks the explicit path when given, else the first of
// the user config file and ./danmaku.toml that exists. A missing file is not
// an error; defaults apply.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("danmaku.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir, c.Paths.RuntimeDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ConverterBinary returns the danmaku converter executable name.
func (c *Config) ConverterBinary() string {
	if binary := strings.TrimSpace(c.Converter.Binary); binary != "" {
		return binary
	}
	return defaultConverterBinary
}

// LockPath returns the single-instance lock file guarding the configured socket.
// Distinct sockets get distinct locks so one daemon can serve each mpv instance.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "danmaku-"+textutil.SanitizeToken(filepath.Clean(c.MPV.Socket))+".lock")
}

// ExpandPath resolves a leading "~" to the user's home directory and returns
// the cleaned absolute path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
