package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"asamblea/internal/attendance"
	"asamblea/internal/meeting"
)

// flexID accepts identifiers sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type meetingPayload struct {
	ID             flexID `json:"id"`
	Type           string `json:"type"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	ScheduledStart string `json:"scheduled_start"`
	Phase          string `json:"phase"`
}

func (p meetingPayload) toMeeting(loc *time.Location) (meeting.Meeting, error) {
	start, err := parseTimestamp(p.ScheduledStart, loc)
	if err != nil {
		return meeting.Meeting{}, fmt.Errorf("meeting %s scheduled_start: %w", p.ID, err)
	}
	return meeting.Meeting{
		ID:             string(p.ID),
		Type:           strings.TrimSpace(p.Type),
		Description:    strings.TrimSpace(p.Description),
		Location:       strings.TrimSpace(p.Location),
		ScheduledStart: start,
		RemotePhase:    meeting.ParsePhase(p.Phase),
	}, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	// Naive timestamps are wall time in the meeting's zone.
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

type entryPayload struct {
	MemberID      flexID `json:"member_id"`
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Status        string `json:"status"`
	Justification string `json:"justification"`
}

func (p entryPayload) toEntry() attendance.Entry {
	status, err := attendance.ParseStatus(p.Status)
	if err != nil {
		status = attendance.StatusAbsent
	}
	return attendance.FromRemote(string(p.MemberID), p.Name, p.LastName, status, p.Justification)
}

type rosterPayload struct {
	Entries []entryPayload `json:"entries"`
}

type phasePayload struct {
	Phase string `json:"phase"`
}

type generatePayload struct {
	MeetingID string `json:"meeting_id"`
}
