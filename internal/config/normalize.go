package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMPV(); err != nil {
		return err
	}
	c.normalizeConverter()
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = ExpandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir()
	}
	if c.Paths.RuntimeDir, err = ExpandPath(c.Paths.RuntimeDir); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMPV() error {
	if value, ok := os.LookupEnv("DANMAKU_MPV_SOCKET"); ok && strings.TrimSpace(value) != "" {
		c.MPV.Socket = value
	}
	c.MPV.Socket = strings.TrimSpace(c.MPV.Socket)
	if c.MPV.Socket == "" {
		c.MPV.Socket = defaultMPVSocket
	}
	var err error
	if c.MPV.Socket, err = ExpandPath(c.MPV.Socket); err != nil {
		return fmt.Errorf("mpv.socket: %w", err)
	}
	if c.MPV.ConnectTimeoutSeconds <= 0 {
		c.MPV.ConnectTimeoutSeconds = defaultConnectTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeConverter() {
	if value, ok := os.LookupEnv("DANMAKU_CONVERTER"); ok && strings.TrimSpace(value) != "" {
		c.Converter.Binary = value
	}
	c.Converter.Binary = strings.TrimSpace(c.Converter.Binary)
	if c.Converter.Binary == "" {
		c.Converter.Binary = defaultConverterBinary
	}
	args := make([]string, 0, len(c.Converter.ExtraArgs))
	for _, arg := range c.Converter.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Converter.ExtraArgs = args
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Extension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Subtitles.Extension), "."))
	if c.Subtitles.Extension == "" {
		c.Subtitles.Extension = defaultSubtitleExtension
	}
	c.Subtitles.AutoSelect = strings.ToLower(strings.TrimSpace(c.Subtitles.AutoSelect))
	if c.Subtitles.AutoSelect == "" {
		c.Subtitles.AutoSelect = defaultAutoSelect
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
