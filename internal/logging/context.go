package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent names the subsystem emitting the log line.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldMeetingID identifies the meeting being run.
	FieldMeetingID = "meeting_id"
	// FieldMemberID identifies a roster member.
	FieldMemberID = "member_id"
	// FieldPhase carries a meeting phase name.
	FieldPhase = "phase"
	// FieldIdentifier carries a decoded credential.
	FieldIdentifier = "identifier"
	// FieldDevice carries a capture device path.
	FieldDevice = "device"
	// FieldSessionID identifies one scan session.
	FieldSessionID = "session_id"
	// FieldRunID identifies one console run.
	FieldRunID = "run_id"
	// FieldCorrelationID ties a remote call to its journal row.
	FieldCorrelationID = "correlation_id"
)

type contextKey int

const (
	meetingKey contextKey = iota
	sessionKey
	correlationKey
)

// WithMeetingID annotates ctx with the meeting identifier.
func WithMeetingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, meetingKey, id)
}

// WithSessionID annotates ctx with a scan session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// WithCorrelationID annotates ctx with a remote call correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationID returns the correlation identifier stored in ctx, if any.
func CorrelationID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	for _, entry := range []struct {
		key   contextKey
		field string
	}{
		{meetingKey, FieldMeetingID},
		{sessionKey, FieldSessionID},
		{correlationKey, FieldCorrelationID},
	} {
		if v, ok := ctx.Value(entry.key).(string); ok && v != "" {
			fields = append(fields, slog.String(entry.field, v))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
