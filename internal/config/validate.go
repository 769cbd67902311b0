package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateMeeting(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("backend.base_url is required. Set ASAMBLEA_BACKEND_URL or edit %s (create with 'asamblea config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateMeeting() error {
	if c.Meeting.DurationMinutes <= 0 {
		return errors.New("meeting.duration_minutes must be positive")
	}
	if c.Meeting.TickIntervalMS < 100 {
		return errors.New("meeting.tick_interval_ms must be at least 100")
	}
	if !strings.EqualFold(c.Meeting.Timezone, "local") {
		if _, err := time.LoadLocation(c.Meeting.Timezone); err != nil {
			return fmt.Errorf("meeting.timezone: %w", err)
		}
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.CooldownSeconds < 0 {
		return errors.New("scanner.cooldown_seconds must be zero or positive")
	}
	if c.Scanner.Enabled && !strings.Contains(c.Scanner.DecoderCommand, "{device}") {
		return errors.New("scanner.decoder_command must contain the {device} placeholder")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
