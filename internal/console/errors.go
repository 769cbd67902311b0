package console

import "errors"

var (
	// ErrNotRunning is returned by commands issued to a stopped console.
	ErrNotRunning = errors.New("console not running")
	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("console already started")
	// ErrLocked means another console holds the state directory.
	ErrLocked = errors.New("another asamblea console is already running")
	// ErrNoMeeting is returned by roster commands when no meeting is loaded.
	ErrNoMeeting = errors.New("no meeting loaded for today")
	// ErrEmptyCode is returned when a typed code is blank.
	ErrEmptyCode = errors.New("empty credential code")
	// ErrUnknownMember is returned when a manual mark names a member not on the roster.
	ErrUnknownMember = errors.New("member not on roster")
)
