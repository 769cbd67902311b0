package attendance

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer drops repeated decodes of the same credential within a cooldown.
//
// In single-slot mode it remembers only the most recently admitted identifier:
// a different identifier is admitted immediately and takes over the slot. In
// per-identifier mode each identifier keeps its own expiry. The debouncer is
// owned by one scan session and is not safe for concurrent use.
type Debouncer struct {
	clock         clockwork.Clock
	cooldown      time.Duration
	perIdentifier bool

	last    string
	expires time.Time
	seen    map[string]time.Time
}

// NewDebouncer builds a debouncer. A nil clock uses the real clock.
func NewDebouncer(clock clockwork.Clock, cooldown time.Duration, perIdentifier bool) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	d := &Debouncer{clock: clock, cooldown: cooldown, perIdentifier: perIdentifier}
	if perIdentifier {
		d.seen = make(map[string]time.Time)
	}
	return d
}

// Admit reports whether identifier should be registered now. Admitting an
// identifier starts its cooldown.
func (d *Debouncer) Admit(identifier string) bool {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return false
	}
	now := d.clock.Now()
	if d.perIdentifier {
		return d.admitKeyed(id, now)
	}

	if d.last != "" && !now.Before(d.expires) {
		d.last = ""
	}
	if id == d.last {
		return false
	}
	d.last = id
	d.expires = now.Add(d.cooldown)
	return true
}

func (d *Debouncer) admitKeyed(id string, now time.Time) bool {
	for key, expiry := range d.seen {
		if !now.Before(expiry) {
			delete(d.seen, key)
		}
	}
	if _, held := d.seen[id]; held {
		return false
	}
	d.seen[id] = now.Add(d.cooldown)
	return true
}

// Suppressed returns the identifiers currently inside their cooldown.
func (d *Debouncer) Suppressed() []string {
	now := d.clock.Now()
	if !d.perIdentifier {
		if d.last == "" || !now.Before(d.expires) {
			return nil
		}
		return []string{d.last}
	}
	var out []string
	for key, expiry := range d.seen {
		if now.Before(expiry) {
			out = append(out, key)
		}
	}
	return out
}

// Reset clears all suppression state.
func (d *Debouncer) Reset() {
	d.last = ""
	d.expires = time.Time{}
	if d.perIdentifier {
		clear(d.seen)
	}
}
