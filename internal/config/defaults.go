package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath            = "~/.config/danmaku/config.toml"
	defaultLogDir                = "~/.local/state/danmaku/logs"
	defaultLogRetentionDays      = 14
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultMPVSocket             = "/tmp/mpvsocket"
	defaultConnectTimeoutSeconds = 5
	defaultConverterBinary       = "danmu2ass"
	defaultConverterTimeout      = 120
	defaultSubtitleExtension     = "ass"
	defaultAutoSelect            = "exact"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:    os.TempDir(),
			LogDir:     defaultLogDir,
			RuntimeDir: defaultRuntimeDir(),
		},
		MPV: MPV{
			Socket:                defaultMPVSocket,
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
		},
		Converter: Converter{
			Binary:         defaultConverterBinary,
			TimeoutSeconds: defaultConverterTimeout,
		},
		Subtitles: Subtitles{
			Extension:  defaultSubtitleExtension,
			AutoSelect: defaultAutoSelect,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "danmaku")
	}
	return filepath.Join(os.TempDir(), "danmaku-runtime")
}
