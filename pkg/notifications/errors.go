package notifications

import "errors"

var (
	// ErrUnknownKind is returned when a configuration names a kind that does not exist.
	ErrUnknownKind = errors.New("notifications: unknown kind")

	// ErrCorruptState is returned by storage when persisted data cannot be decoded.
	ErrCorruptState = errors.New("notifications: persisted state is corrupt")

	// ErrStreamClosed is returned by Service.Run when the source closes its stream.
	ErrStreamClosed = errors.New("notifications: change stream closed")
)
