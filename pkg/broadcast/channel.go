package broadcast

import (
	"context"
	"sync"
)

type chanSink[T any] struct {
	ch     chan T
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

func (s *chanSink[T]) send(msg T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	select {
	case s.ch <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

func (s *chanSink[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		close(s.done)
		s.closed = true
	}
}

// SubscribeChan registers a subscriber that forwards messages into a buffered
// channel, for consumers that process messages on their own goroutine.
// Sends never block the publisher: when the buffer is full the message is
// dropped for this subscriber. The channel is closed when the returned
// CancelFunc is called, when ctx is done, or when the registry is closed.
func (r *Registry[T]) SubscribeChan(ctx context.Context, buffer int) (<-chan T, CancelFunc) {
	sink := &chanSink[T]{ch: make(chan T, max(buffer, 1)), done: make(chan struct{})}

	cancel := r.subscribe(func(_ context.Context, msg T) error {
		return sink.send(msg)
	}, sink.close)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-sink.done:
			}
		}()
	}

	return sink.ch, cancel
}
