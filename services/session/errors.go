package session

import "errors"

var (
	// ErrNotHydrated is returned while a technician's state has not been
	// loaded from durable storage yet. Callers must not treat it as "no
	// active session".
	ErrNotHydrated = errors.New("session state not hydrated")

	// ErrInvalidReason is returned by Clear for an unknown clear reason.
	ErrInvalidReason = errors.New("invalid clear reason")
)
