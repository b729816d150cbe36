package broadcast

import "errors"

var (
	// ErrHandlerPanic wraps a panic recovered from a subscriber.
	ErrHandlerPanic = errors.New("broadcast: subscriber panicked")

	// ErrBufferFull is reported when a channel subscriber drops a message.
	ErrBufferFull = errors.New("broadcast: subscriber buffer is full")
)
