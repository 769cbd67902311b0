// Package ipc exposes a running console over JSON-RPC on a Unix socket and
// ships the matching client used by the CLI.
//
// The server translates console state into the wire DTOs in types.go; the
// client bounds every call with a timeout so CLI commands fail fast when the
// console is not running. Add new endpoints here rather than widening the
// console API.
package ipc
