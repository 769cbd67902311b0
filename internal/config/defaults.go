package config

const (
	defaultConfigPath           = "~/.config/asamblea/config.toml"
	defaultStateDir             = "~/.local/share/asamblea"
	defaultLogDir               = "~/.local/share/asamblea/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultBackendTimeout       = 10
	defaultMeetingDuration      = 120
	defaultTickIntervalMS       = 1000
	defaultTimezone             = "Local"
	defaultScanCooldownSeconds  = 5
	defaultDecoderCommand       = "zbarcam --raw --nodisplay {device}"
	defaultProbeTimeoutSeconds  = 3
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			RequestTimeout: defaultBackendTimeout,
		},
		Meeting: Meeting{
			DurationMinutes: defaultMeetingDuration,
			TickIntervalMS:  defaultTickIntervalMS,
			Timezone:        defaultTimezone,
		},
		Scanner: Scanner{
			Enabled:             true,
			CooldownSeconds:     defaultScanCooldownSeconds,
			DecoderCommand:      defaultDecoderCommand,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			Hotplug:             true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Phase:          true,
			Registration:   false,
			Camera:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
