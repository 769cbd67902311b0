package meeting_test

import (
	"testing"
	"time"

	"asamblea/internal/meeting"
)

type recordingEffects struct {
	guard     *meeting.Guard
	mirrored  []meeting.Phase
	generated int
	// lastSeen captures the guard state at the moment each effect fires.
	lastSeen []meeting.Phase
}

func (r *recordingEffects) MirrorPhase(_ string, phase meeting.Phase) {
	r.mirrored = append(r.mirrored, phase)
	if r.guard != nil {
		r.lastSeen = append(r.lastSeen, r.guard.Last())
	}
}

func (r *recordingEffects) GenerateRoster(string) {
	r.generated++
}

func TestGuardFiresOncePerBoundaryInTickScenario(t *testing.T) {
	const duration = 2 * time.Hour
	effects := &recordingEffects{}
	guard := meeting.NewGuard("m-1", meeting.PhaseScheduled, effects, nil)

	ticks := []time.Duration{
		-5000 * time.Millisecond,
		-1000 * time.Millisecond,
		0,
		time.Millisecond,
		duration - time.Millisecond,
		duration,
	}
	want := []meeting.Phase{
		meeting.PhaseScheduled,
		meeting.PhaseScheduled,
		meeting.PhaseInProgress,
		meeting.PhaseInProgress,
		meeting.PhaseInProgress,
		meeting.PhaseFinished,
	}

	fired := 0
	for i, offset := range ticks {
		snap := meeting.Derive(meetingStart, duration, meetingStart.Add(offset))
		if snap.Phase != want[i] {
			t.Fatalf("tick %d: phase %s, want %s", i, snap.Phase, want[i])
		}
		if _, ok := guard.Observe(snap.Phase); ok {
			fired++
		}
	}

	if fired != 2 {
		t.Fatalf("expected exactly two transitions, got %d", fired)
	}
	if len(effects.mirrored) != 2 || effects.mirrored[0] != meeting.PhaseInProgress || effects.mirrored[1] != meeting.PhaseFinished {
		t.Fatalf("unexpected mirror calls %v", effects.mirrored)
	}
	if effects.generated != 1 {
		t.Fatalf("expected roster generated once, got %d", effects.generated)
	}
}

func TestGuardRecordsPhaseBeforeCallingEffects(t *testing.T) {
	effects := &recordingEffects{}
	guard := meeting.NewGuard("m-1", meeting.PhaseUnset, effects, nil)
	effects.guard = guard

	guard.Observe(meeting.PhaseInProgress)

	if len(effects.lastSeen) != 1 || effects.lastSeen[0] != meeting.PhaseInProgress {
		t.Fatalf("guard state during mirror call = %v, want IN_PROGRESS", effects.lastSeen)
	}
}

func TestGuardRepeatedTicksDoNotRefire(t *testing.T) {
	effects := &recordingEffects{}
	guard := meeting.NewGuard("m-1", meeting.PhaseUnset, effects, nil)

	for range 1000 {
		guard.Observe(meeting.PhaseInProgress)
	}
	if len(effects.mirrored) != 1 || effects.generated != 1 {
		t.Fatalf("expected one mirror and one generation, got %d and %d", len(effects.mirrored), effects.generated)
	}
}

func TestGuardUnsetFiresForFirstObservedPhase(t *testing.T) {
	effects := &recordingEffects{}
	guard := meeting.NewGuard("m-1", meeting.Phase("bogus"), effects, nil)
	if guard.Last() != meeting.PhaseUnset {
		t.Fatalf("invalid seed should become unset, got %q", guard.Last())
	}

	tr, ok := guard.Observe(meeting.PhaseScheduled)
	if !ok || tr.From != meeting.PhaseUnset || tr.To != meeting.PhaseScheduled {
		t.Fatalf("unexpected transition %+v ok=%v", tr, ok)
	}
	if effects.generated != 0 {
		t.Fatal("roster must only be generated when entering IN_PROGRESS")
	}
}

func TestGuardSeededFromRemoteInProgressDoesNotRegenerate(t *testing.T) {
	effects := &recordingEffects{}
	guard := meeting.NewGuard("m-1", meeting.PhaseInProgress, effects, nil)

	if _, ok := guard.Observe(meeting.PhaseInProgress); ok {
		t.Fatal("no transition expected when clock agrees with remote phase")
	}
	if len(effects.mirrored) != 0 || effects.generated != 0 {
		t.Fatal("no side effects expected")
	}
}

func TestGuardWithoutEffects(t *testing.T) {
	guard := meeting.NewGuard("m-1", meeting.PhaseUnset, nil, nil)
	if _, ok := guard.Observe(meeting.PhaseFinished); !ok {
		t.Fatal("expected transition to be recorded without effects")
	}
}
