// Package journal keeps a local SQLite record of every backend call the
// console attempted during a session.
//
// The journal is write-mostly: the console appends one Record per phase
// mirror, roster generation, registration, or roster refresh, and the CLI
// reads the newest rows back for `asamblea journal`. It is an audit trail,
// never a source of truth for attendance.
package journal
