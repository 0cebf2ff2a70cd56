package sonic

import "errors"

var (
	// ErrSessionExists is returned by CreateSession for a duplicate ID.
	ErrSessionExists = errors.New("sonic: session already exists")

	// ErrSessionNotFound is returned when an operation names an unknown
	// session.
	ErrSessionNotFound = errors.New("sonic: session not found")

	// ErrSessionInactive is returned when audio or setup events are sent
	// to a session that has already been deactivated.
	ErrSessionInactive = errors.New("sonic: session inactive")

	// errQueueClosed terminates the frame source once the outbound queue
	// has been closed and drained.
	errQueueClosed = errors.New("sonic: event queue closed")
)
