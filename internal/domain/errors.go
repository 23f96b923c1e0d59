package domain

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; repositories and services wrap them with context.
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")

	// ErrTokenUnavailable means the stored credentials for an account
	// could not be decrypted or refreshed. It is fatal for that account
	// only; dispatch of sibling targets continues.
	ErrTokenUnavailable = errors.New("token unavailable")

	// ErrInvalidTransition is returned when a post or conversation state
	// change is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrServiceWindowClosed rejects free-form WhatsApp replies outside
	// the 24-hour customer service window.
	ErrServiceWindowClosed = errors.New("service window closed")
)
