package domain

import "errors"

var (
	// ErrAuthFailure rejects a handshake: missing, invalid or expired token,
	// or a token whose user no longer exists.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrMalformedEvent marks an inbound frame missing required fields.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrPersistence wraps store failures after a message was broadcast.
	ErrPersistence = errors.New("message persistence failed")
)
