package server

import "errors"

// Sentinel errors for server configuration and lifecycle.
var (
	// ErrInvalidRedirectStatus is returned when RedirectStatus is not 3xx.
	ErrInvalidRedirectStatus = errors.New("server: redirect status must be 3xx")

	// ErrInvalidAuditQueue is returned when AuditQueueSize is negative.
	ErrInvalidAuditQueue = errors.New("server: audit queue size must not be negative")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("server: already running")
)
