// Package notifications pushes console events to the committee's phones via ntfy.
//
// The ntfy implementation publishes to the topic configured in config.toml and
// degrades to a no-op when no topic is set. Each Event maps to a fixed title,
// tag set, and message template so console code only supplies the payload.
// Per-category toggles in [notifications] silence events the committee does
// not want on their phones.
package notifications
