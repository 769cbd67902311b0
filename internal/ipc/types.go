package ipc

import (
	"time"

	"asamblea/internal/attendance"
)

// Entry is a roster row on the wire.
type Entry = attendance.Entry

// MeetingInfo describes today's meeting.
type MeetingInfo struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Location       string    `json:"location"`
	ScheduledStart time.Time `json:"scheduled_start"`
}

// Notice is a console notice.
type Notice struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// StatusRequest fetches console status.
type StatusRequest struct{}

// StatusResponse is the console status snapshot.
type StatusResponse struct {
	Running            bool           `json:"running"`
	PID                int            `json:"pid"`
	StartedAt          time.Time      `json:"started_at"`
	Now                time.Time      `json:"now"`
	Meeting            *MeetingInfo   `json:"meeting,omitempty"`
	Phase              string         `json:"phase"`
	PhaseLabel         string         `json:"phase_label"`
	Confirmed          string         `json:"confirmed_phase"`
	TimeToStartSeconds int64          `json:"time_to_start_seconds"`
	TimeToEndSeconds   int64          `json:"time_to_end_seconds"`
	Camera             string         `json:"camera"`
	CameraReason       string         `json:"camera_reason,omitempty"`
	Device             string         `json:"device,omitempty"`
	Scanning           bool           `json:"scanning"`
	SessionID          string         `json:"session_id,omitempty"`
	CoolingDown        []string       `json:"cooling_down,omitempty"`
	RosterSize         int            `json:"roster_size"`
	RosterAt           time.Time      `json:"roster_at"`
	Counts             map[string]int `json:"counts"`
	Notices            []Notice       `json:"notices"`
}

// RosterRequest searches the roster; an empty query returns every row.
type RosterRequest struct {
	Query string `json:"query"`
}

// RosterResponse lists matching rows sorted by member id.
type RosterResponse struct {
	Entries []Entry `json:"entries"`
}

// MarkRequest toggles a member's presence.
type MarkRequest struct {
	MemberID      string `json:"member_id"`
	Present       bool   `json:"present"`
	Status        string `json:"status,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// MarkResponse reports the backend's answer.
type MarkResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Entry   *Entry `json:"entry,omitempty"`
}

// ScanRequest submits a typed credential code.
type ScanRequest struct {
	Code string `json:"code"`
}

// ScanResponse reports a typed scan outcome.
type ScanResponse struct {
	Identifier string `json:"identifier"`
	Suppressed bool   `json:"suppressed"`
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	Entry      *Entry `json:"entry,omitempty"`
}

// RefreshRequest re-fetches the roster.
type RefreshRequest struct{}

// RefreshResponse reports the roster size after refresh.
type RefreshResponse struct {
	Entries int `json:"entries"`
}

// DefaultNoticeLimit applies when a NoticesRequest leaves Limit unset.
const DefaultNoticeLimit = 20

// NoticesRequest fetches the most recent console notices.
type NoticesRequest struct {
	Limit int `json:"limit"`
}

// NoticesResponse lists notices oldest first.
type NoticesResponse struct {
	Notices []Notice `json:"notices"`
}

// StopRequest asks the console to shut down.
type StopRequest struct{}

// StopResponse acknowledges a stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
