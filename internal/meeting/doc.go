// Package meeting models the meeting of the day and derives its phase from the clock.
//
// Derive is a pure function of the scheduled start, the fixed duration, and the
// sampled time; it is recomputed from scratch on every console tick. Guard
// remembers the last phase it mirrored to the backend and fires the mirror (and,
// on entering IN_PROGRESS, roster generation) at most once per phase change.
package meeting
