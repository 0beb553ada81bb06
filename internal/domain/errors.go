package domain

import "errors"

var (
	// ErrDuplicateConnection is returned by Register when the connection ID is
	// already present. Registering twice is a programmer error on the caller's
	// side, so this is the one broker failure surfaced to callers.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrTooManyConnections is returned by Register when the owning user is at
	// the per-user connection cap.
	ErrTooManyConnections = errors.New("too many connections for user")

	// ErrBrokerStopped is returned by Register once the broker has shut down.
	ErrBrokerStopped = errors.New("broker stopped")
)
