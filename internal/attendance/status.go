package attendance

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a member's attendance state for a meeting.
type Status string

const (
	StatusPresent   Status = "PRESENTE"
	StatusLate      Status = "RETRASO"
	StatusJustified Status = "JUSTIFICADO"
	StatusAbsent    Status = "AUSENTE"
)

// ErrInvalidStatus is returned when a status name is not recognized.
var ErrInvalidStatus = errors.New("invalid attendance status")

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPresent, StatusLate, StatusJustified, StatusAbsent}
}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, s := range Statuses() {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

// Attending reports whether the status counts the member as in the room.
func (s Status) Attending() bool {
	return s == StatusPresent || s == StatusLate || s == StatusJustified
}
