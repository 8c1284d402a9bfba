package device

import "errors"

var (
	// ErrNotFound is returned when an operation references a MAC address
	// that is not currently registered. Stale clients polling after
	// removal hit this path routinely, so it is not logged as a failure.
	ErrNotFound = errors.New("device not found")

	// ErrInvalidArgument is returned for malformed input to a core
	// operation, e.g. a negative drain limit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMailboxClosed is returned by Append when the owning device was
	// unregistered while a broadcast was still in flight.
	ErrMailboxClosed = errors.New("mailbox closed")
)
