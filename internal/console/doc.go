// Package console runs the meeting-day event loop.
//
// A Console owns every piece of mutable meeting state: the transition guard,
// the roster, the scan debouncer, and the active scan session. One goroutine
// drains a single event channel fed by the clock ticker, the decoder stream,
// hotplug events, remote-call completions, and operator commands arriving over
// IPC. Remote calls never run on the loop; they run in their own goroutines and
// post a closure back with the outcome. Outcomes that arrive after the console
// stopped are dropped.
//
// Failures are never fatal. Phase mirror and roster generation failures
// become notices, registration failures leave the roster row untouched, and
// camera failures drop the console into manual-only mode with a single notice.
package console
