package meeting

import (
	"log/slog"

	"asamblea/internal/logging"
)

// Effects receives the side effects of a confirmed phase change. Implementations
// must not block; the console dispatches both calls in the background.
type Effects interface {
	MirrorPhase(meetingID string, phase Phase)
	GenerateRoster(meetingID string)
}

// Transition describes one phase change observed by the guard.
type Transition struct {
	From Phase
	To   Phase
}

// Guard holds the last phase mirrored to the backend. It is owned by the
// console loop and is not safe for concurrent use.
type Guard struct {
	meetingID string
	last      Phase
	effects   Effects
	logger    *slog.Logger
}

// NewGuard seeds the guard with the backend's last known phase, or PhaseUnset.
func NewGuard(meetingID string, initial Phase, effects Effects, logger *slog.Logger) *Guard {
	if !initial.Valid() {
		initial = PhaseUnset
	}
	return &Guard{
		meetingID: meetingID,
		last:      initial,
		effects:   effects,
		logger:    logging.NewComponentLogger(logger, "guard"),
	}
}

// Last returns the last confirmed phase.
func (g *Guard) Last() Phase {
	return g.last
}

// Observe compares phase with the last confirmed phase. On a change it records
// the new phase first, then requests the mirror, then roster generation when
// entering IN_PROGRESS. It reports whether a transition fired.
func (g *Guard) Observe(phase Phase) (Transition, bool) {
	if phase == g.last {
		return Transition{}, false
	}
	tr := Transition{From: g.last, To: phase}
	g.last = phase

	g.logger.Info("phase transition",
		logging.String(logging.FieldEventType, "phase_transition"),
		logging.String(logging.FieldMeetingID, g.meetingID),
		logging.String("from", tr.From.String()),
		logging.String(logging.FieldPhase, tr.To.String()),
	)

	if g.effects != nil {
		g.effects.MirrorPhase(g.meetingID, phase)
		if phase == PhaseInProgress {
			g.effects.GenerateRoster(g.meetingID)
		}
	}
	return tr, true
}
