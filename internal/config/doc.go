// Package config loads, normalizes, and validates asamblea configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays ASAMBLEA_* environment variables
// such as ASAMBLEA_BACKEND_URL. The Config type centralizes every knob the
// console and CLI need: backend endpoint, meeting timing, scanner behaviour,
// notifications, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
