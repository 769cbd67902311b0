package meeting_test

import (
	"testing"
	"time"

	"asamblea/internal/meeting"
)

var meetingStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func TestDeriveBoundariesBelongToLaterPhase(t *testing.T) {
	const duration = 2 * time.Hour
	tests := []struct {
		name string
		now  time.Time
		want meeting.Phase
	}{
		{"one ms before start", meetingStart.Add(-time.Millisecond), meeting.PhaseScheduled},
		{"exactly at start", meetingStart, meeting.PhaseInProgress},
		{"one ms before end", meetingStart.Add(duration - time.Millisecond), meeting.PhaseInProgress},
		{"exactly at end", meetingStart.Add(duration), meeting.PhaseFinished},
		{"long after end", meetingStart.Add(48 * time.Hour), meeting.PhaseFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := meeting.Derive(meetingStart, duration, tt.now)
			if got.Phase != tt.want {
				t.Fatalf("phase = %s, want %s", got.Phase, tt.want)
			}
		})
	}
}

func TestDeriveCountdowns(t *testing.T) {
	const duration = 2 * time.Hour

	before := meeting.Derive(meetingStart, duration, meetingStart.Add(-90*time.Second))
	if before.TimeToStart != 90*time.Second || before.TimeToEnd != 0 {
		t.Fatalf("unexpected scheduled countdowns: %+v", before)
	}

	during := meeting.Derive(meetingStart, duration, meetingStart.Add(30*time.Minute))
	if during.TimeToStart != 0 || during.TimeToEnd != 90*time.Minute {
		t.Fatalf("unexpected in-progress countdowns: %+v", during)
	}
	if during.Remaining() != 90*time.Minute {
		t.Fatalf("Remaining = %s", during.Remaining())
	}

	after := meeting.Derive(meetingStart, duration, meetingStart.Add(3*time.Hour))
	if after.TimeToStart != 0 || after.TimeToEnd != 0 || after.Remaining() != 0 {
		t.Fatalf("unexpected finished countdowns: %+v", after)
	}
}

func TestDeriveExactlyOnePhaseForEveryInstant(t *testing.T) {
	const duration = 2 * time.Hour
	for offset := -3 * time.Hour; offset <= 5*time.Hour; offset += 7 * time.Minute {
		snap := meeting.Derive(meetingStart, duration, meetingStart.Add(offset))
		scheduled := snap.TimeToStart > 0
		inProgress := snap.TimeToStart == 0 && snap.TimeToEnd > 0
		finished := snap.TimeToStart == 0 && snap.TimeToEnd == 0

		count := 0
		for _, holds := range []bool{scheduled, inProgress, finished} {
			if holds {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("offset %s: %d predicates hold", offset, count)
		}
		if !snap.Phase.Valid() {
			t.Fatalf("offset %s: invalid phase %q", offset, snap.Phase)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := map[time.Duration]string{
		0:                              "00:00:00",
		-time.Second:                   "00:00:00",
		1500 * time.Millisecond:        "00:00:01",
		2*time.Hour - time.Millisecond: "01:59:59",
		26*time.Hour + 3*time.Minute + 4*time.Second: "26:03:04",
	}
	for in, want := range cases {
		if got := meeting.FormatCountdown(in); got != want {
			t.Errorf("FormatCountdown(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	if meeting.ParsePhase(" in_progress ") != meeting.PhaseInProgress {
		t.Fatal("expected case-insensitive parse")
	}
	if meeting.ParsePhase("CANCELLED") != meeting.PhaseUnset {
		t.Fatal("expected unknown phase to map to unset")
	}
	if meeting.PhaseUnset.Valid() {
		t.Fatal("unset must not be a valid phase")
	}
}
