package testsupport

import (
	"path/filepath"
	"testing"

	"asamblea/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The scanner is disabled and the backend points at an unroutable address
// until WithBackend overrides it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.BaseURL = "http://127.0.0.1:1"
	cfgVal.Backend.RequestTimeout = 2
	cfgVal.Meeting.Timezone = "UTC"
	cfgVal.Scanner.Enabled = false
	cfgVal.Scanner.Hotplug = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend points the config at a backend base URL.
func WithBackend(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithScanner enables the scanner with the given decoder command template.
func WithScanner(decoderCommand string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scanner.Enabled = true
		if decoderCommand != "" {
			b.cfg.Scanner.DecoderCommand = decoderCommand
		}
	}
}

// WithCooldown overrides the scan cooldown.
func WithCooldown(seconds int, perIdentifier bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scanner.CooldownSeconds = seconds
		b.cfg.Scanner.PerIdentifier = perIdentifier
	}
}

// WithNtfyTopic routes notifications to the given endpoint.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
