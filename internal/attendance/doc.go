// Package attendance owns the meeting roster and the two paths that mutate it.
//
// Roster keeps entries sorted by numeric member id and answers case-folded
// searches. Every mutation, whether it comes from a scanned credential or a
// manual toggle, goes through Roster.Apply after the backend acknowledges it.
// Debouncer suppresses the repeated decodes a camera produces while a
// credential stays in frame, and Registrar turns scans and toggles into
// backend registration calls.
package attendance
