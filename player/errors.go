package player

import "errors"

var (
	// Resolution failures.
	ErrNotFound = errors.New("no matching track found")
	ErrUpstream = errors.New("resolution backend failed")

	// Pause/resume/skip on a session without a matching stream.
	ErrNoActiveStream = errors.New("no active stream")

	// EndTransmission on an already idle chat. Always safe to ignore.
	ErrNotActive = errors.New("no active transmission")

	// Enqueue beyond the configured queue cap.
	ErrQueueFull = errors.New("queue is full")

	// Operation posted to a session that finished tearing down.
	ErrSessionClosed = errors.New("session closed")
)
