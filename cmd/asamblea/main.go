package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit codes returned by the CLI.
const (
	exitFailure     = 1
	exitUnreachable = 3
	exitInterrupted = 130
)

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err == nil {
		return
	}
	code := exitCode(err)
	if code != exitInterrupted {
		fmt.Fprintf(os.Stderr, "asamblea: %v\n", err)
	}
	os.Exit(code)
}

// exitCode separates "no console to talk to" from other failures so wrapper
// scripts can start the console and retry.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errConsoleUnreachable):
		return exitUnreachable
	default:
		return exitFailure
	}
}
