package attendance

import "strings"

// Entry is one member's row in the meeting roster.
type Entry struct {
	MemberID      string `json:"member_id"`
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Status        Status `json:"status"`
	Present       bool   `json:"present"`
	Justification string `json:"justification,omitempty"`
}

// FullName joins name and last name for display.
func (e Entry) FullName() string {
	return strings.TrimSpace(e.Name + " " + e.LastName)
}

// Normalize enforces the presence invariant: an absent entry carries status
// AUSENTE with no justification, and a present entry never carries AUSENTE.
func (e Entry) Normalize() Entry {
	if !e.Present {
		e.Status = StatusAbsent
		e.Justification = ""
		return e
	}
	if e.Status == StatusAbsent || e.Status == "" {
		e.Status = StatusPresent
	}
	if e.Status != StatusJustified {
		e.Justification = ""
	}
	return e
}

// FromRemote builds an entry whose presence flag is derived from the reported status.
func FromRemote(memberID, name, lastName string, status Status, justification string) Entry {
	if status == "" {
		status = StatusAbsent
	}
	e := Entry{
		MemberID:      strings.TrimSpace(memberID),
		Name:          strings.TrimSpace(name),
		LastName:      strings.TrimSpace(lastName),
		Status:        status,
		Present:       status != StatusAbsent,
		Justification: strings.TrimSpace(justification),
	}
	return e.Normalize()
}
