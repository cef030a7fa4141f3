package retrievio

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrSessionClosed is returned when using a closed session.
	ErrSessionClosed = errors.New("session closed")
)
