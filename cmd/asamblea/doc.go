// Package main hosts the asamblea CLI entrypoint and command graph.
//
// `asamblea run` starts the meeting-day console in the foreground and serves
// it over a Unix socket. The remaining commands are thin IPC clients (status,
// roster, mark, scan, refresh, stop) or local utilities that work without a
// running console (cameras, journal, config, test-notify).
package main
