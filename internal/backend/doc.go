// Package backend talks to the committee's meeting and attendance API.
//
// Client covers the five calls the console needs: today's meeting, the phase
// mirror, roster generation, attendance registration, and the roster
// snapshot. Non-2xx responses become *APIError values whose UserMessage is the
// server's human-readable explanation.
package backend
