package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may be supplied through the environment.
// Non-empty values replace whatever the TOML file contained.
type envOverrides struct {
	BackendURL string `env:"ASAMBLEA_BACKEND_URL"`
	APIToken   string `env:"ASAMBLEA_API_TOKEN"`
	NtfyTopic  string `env:"ASAMBLEA_NTFY_TOPIC"`
	LogLevel   string `env:"ASAMBLEA_LOG_LEVEL"`
	LogFormat  string `env:"ASAMBLEA_LOG_FORMAT"`
	StateDir   string `env:"ASAMBLEA_STATE_DIR"`
}

func (c *Config) applyEnv() error {
	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("environment overrides are invalid: %w", err)
	}
	overlay(&c.Backend.BaseURL, raw.BackendURL)
	overlay(&c.Backend.APIToken, raw.APIToken)
	overlay(&c.Notifications.NtfyTopic, raw.NtfyTopic)
	overlay(&c.Logging.Level, raw.LogLevel)
	overlay(&c.Logging.Format, raw.LogFormat)
	overlay(&c.Paths.StateDir, raw.StateDir)
	return nil
}

func overlay(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}
