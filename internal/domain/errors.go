package domain

import "errors"

// Errors are wrapped with fmt.Errorf("%w: ...") and checked with errors.Is.
var (
	// ErrBind is returned when a listening socket cannot be opened: the port
	// is taken or the address is invalid.
	ErrBind = errors.New("posebridge: bind failed")

	// ErrAccept is returned when waiting for a peer fails, typically because
	// the listener was closed.
	ErrAccept = errors.New("posebridge: accept failed")

	// ErrReceive is an I/O fault while reading a line from the peer.
	ErrReceive = errors.New("posebridge: receive failed")

	// ErrSend is an I/O fault while writing a line to the peer.
	ErrSend = errors.New("posebridge: send failed")

	// ErrClosed is returned by blocking channel operations interrupted by a
	// local close. It is an expected outcome of teardown, not a fault.
	ErrClosed = errors.New("posebridge: channel closed")

	// ErrNotConnected is returned by line I/O before a peer was accepted.
	ErrNotConnected = errors.New("posebridge: no peer connected")

	// ErrParse is returned for a malformed command line.
	ErrParse = errors.New("posebridge: malformed command")

	// ErrMove is returned by a motion backend that rejected or failed a move.
	ErrMove = errors.New("posebridge: move failed")

	// ErrAlreadyStarted is returned when Start is called twice on a worker.
	ErrAlreadyStarted = errors.New("posebridge: already started")

	// ErrNotInitialized is returned by Session.Run when Initialize did not
	// complete successfully.
	ErrNotInitialized = errors.New("posebridge: session not initialized")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("posebridge: invalid configuration")
)
