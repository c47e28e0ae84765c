package queue

import "errors"

var (
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("import session not found")
	// ErrItemNotFound is returned when a queue item id does not exist.
	ErrItemNotFound = errors.New("queue item not found")
	// ErrInvalidState is returned when a mutation targets a session or item
	// whose current status does not allow it.
	ErrInvalidState = errors.New("invalid state")
)
