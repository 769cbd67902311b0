package meeting

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the lifecycle stage of a meeting.
type Phase string

const (
	// PhaseUnset is the guard's initial state when the backend has not reported a phase.
	PhaseUnset      Phase = ""
	PhaseScheduled  Phase = "SCHEDULED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinished   Phase = "FINISHED"
)

// ParsePhase accepts the backend's phase names case-insensitively. Unknown or empty
// values map to PhaseUnset.
func ParsePhase(value string) Phase {
	switch Phase(strings.ToUpper(strings.TrimSpace(value))) {
	case PhaseScheduled:
		return PhaseScheduled
	case PhaseInProgress:
		return PhaseInProgress
	case PhaseFinished:
		return PhaseFinished
	default:
		return PhaseUnset
	}
}

// Valid reports whether p is one of the three real phases.
func (p Phase) Valid() bool {
	return p == PhaseScheduled || p == PhaseInProgress || p == PhaseFinished
}

func (p Phase) String() string {
	if p == PhaseUnset {
		return "UNSET"
	}
	return string(p)
}

// Label returns the operator-facing name shown on the console.
func (p Phase) Label() string {
	switch p {
	case PhaseScheduled:
		return "Programada"
	case PhaseInProgress:
		return "En curso"
	case PhaseFinished:
		return "Finalizada"
	default:
		return "Sin estado"
	}
}

// Meeting is the descriptor returned by the backend for today's meeting.
type Meeting struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	ScheduledStart time.Time `json:"scheduled_start"`
	// RemotePhase is the last phase the backend recorded, used to seed the guard.
	RemotePhase Phase `json:"phase"`
}

// Title is a one-line summary for status output.
func (m Meeting) Title() string {
	label := strings.TrimSpace(m.Type)
	if label == "" {
		label = "Asamblea"
	}
	if desc := strings.TrimSpace(m.Description); desc != "" {
		return fmt.Sprintf("%s: %s", label, desc)
	}
	return label
}
