package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMPV(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMPV() error {
	if strings.TrimSpace(c.MPV.Socket) == "" {
		return errors.New("mpv.socket must be set")
	}
	if c.MPV.ConnectTimeoutSeconds <= 0 {
		return errors.New("mpv.connect_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if strings.TrimSpace(c.Converter.Binary) == "" {
		return errors.New("converter.binary must be set")
	}
	if c.Converter.TimeoutSeconds < 0 {
		return errors.New("converter.timeout_seconds must be zero (no limit) or positive")
	}
	for _, arg := range c.Converter.ExtraArgs {
		switch arg {
		case "-o", "--output", "--no-web":
			return fmt.Errorf("converter.extra_args: %q is managed by danmaku", arg)
		}
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	for _, r := range c.Subtitles.Extension {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return fmt.Errorf("subtitles.extension %q must be alphanumeric", c.Subtitles.Extension)
		}
	}
	switch c.Subtitles.AutoSelect {
	case "no", "exact", "fuzzy", "all":
	default:
		return fmt.Errorf("subtitles.auto_select %q must be one of no, exact, fuzzy, all", c.Subtitles.AutoSelect)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
