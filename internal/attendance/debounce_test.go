package attendance_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"asamblea/internal/attendance"
)

func TestDebouncerSuppressesWithinCooldown(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	d := attendance.NewDebouncer(clock, 5*time.Second, false)

	calls := 0
	for range 30 {
		if d.Admit("QR-0042") {
			calls++
		}
		clock.Advance(100 * time.Millisecond)
	}
	if calls != 1 {
		t.Fatalf("expected one registration within cooldown, got %d", calls)
	}
}

func TestDebouncerAdmitsAgainAfterCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := attendance.NewDebouncer(clock, 5*time.Second, false)

	calls := 0
	if d.Admit("QR-0042") {
		calls++
	}
	clock.Advance(5 * time.Second)
	if d.Admit("QR-0042") {
		calls++
	}
	if calls != 2 {
		t.Fatalf("expected two registrations across the cooldown boundary, got %d", calls)
	}
}

func TestDebouncerSingleSlotIsLastWriterWins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := attendance.NewDebouncer(clock, 5*time.Second, false)

	if !d.Admit("A") {
		t.Fatal("first A should pass")
	}
	clock.Advance(time.Second)
	if !d.Admit("B") {
		t.Fatal("different member right after should pass")
	}
	clock.Advance(time.Second)
	if !d.Admit("A") {
		t.Fatal("A overwritten by B should pass again in single-slot mode")
	}
	if d.Admit("A") {
		t.Fatal("A is in the slot now and must be suppressed")
	}
}

func TestDebouncerPerIdentifierKeepsEachCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := attendance.NewDebouncer(clock, 5*time.Second, true)

	if !d.Admit("A") || !d.Admit("B") {
		t.Fatal("distinct identifiers should pass")
	}
	clock.Advance(time.Second)
	if d.Admit("A") {
		t.Fatal("A must stay suppressed while B is newer")
	}
	if got := len(d.Suppressed()); got != 2 {
		t.Fatalf("expected two suppressed identifiers, got %d", got)
	}
	clock.Advance(4 * time.Second)
	if !d.Admit("A") {
		t.Fatal("A should pass after its own cooldown")
	}
}

func TestDebouncerResetAndBlank(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := attendance.NewDebouncer(clock, 5*time.Second, false)

	if d.Admit("   ") {
		t.Fatal("blank decode must be dropped")
	}
	d.Admit("A")
	d.Reset()
	if len(d.Suppressed()) != 0 {
		t.Fatal("reset should clear the slot")
	}
	if !d.Admit("A") {
		t.Fatal("A should pass after reset")
	}
}
