package escalation

import "errors"

var (
	ErrFailedToSendEmail = errors.New("escalation: failed to send email")
	ErrInvalidConfig     = errors.New("escalation: invalid config")
	ErrInvalidMessage    = errors.New("escalation: invalid message")
	ErrQueueFull         = errors.New("escalation: queue is full, notification dropped")
	ErrStopped           = errors.New("escalation: escalator is stopped")
)
