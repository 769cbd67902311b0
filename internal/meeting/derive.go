package meeting

import (
	"fmt"
	"time"
)

// Snapshot is the clock-derived view of a meeting at one instant.
type Snapshot struct {
	TimeToStart time.Duration
	TimeToEnd   time.Duration
	Phase       Phase
}

// Derive computes the countdowns and phase for a meeting starting at start and
// lasting duration, as observed at now. Intervals are closed-open: now == start is
// IN_PROGRESS and now == start+duration is FINISHED.
func Derive(start time.Time, duration time.Duration, now time.Time) Snapshot {
	toStart := max(start.Sub(now), 0)
	var toEnd time.Duration
	if toStart == 0 {
		toEnd = max(start.Add(duration).Sub(now), 0)
	}

	phase := PhaseFinished
	switch {
	case toStart > 0:
		phase = PhaseScheduled
	case toEnd > 0:
		phase = PhaseInProgress
	}
	return Snapshot{TimeToStart: toStart, TimeToEnd: toEnd, Phase: phase}
}

// Remaining returns the countdown relevant to the phase: time to start while
// scheduled, time to end while in progress, zero afterwards.
func (s Snapshot) Remaining() time.Duration {
	switch s.Phase {
	case PhaseScheduled:
		return s.TimeToStart
	case PhaseInProgress:
		return s.TimeToEnd
	default:
		return 0
	}
}

// FormatCountdown renders d as HH:MM:SS, truncating sub-second remainders.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
