package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sakhi-health/notifycore/pkg/logger"
)

// Handler receives a published message. Returned errors and panics are
// logged by the registry and never reach the publisher or other handlers.
// Handlers run on the publisher's goroutine and must return quickly.
type Handler[T any] func(ctx context.Context, msg T) error

// CancelFunc removes the subscription it was returned for. It is idempotent.
type CancelFunc func()

type subscription[T any] struct {
	handler  Handler[T]
	active   atomic.Bool
	once     sync.Once
	onCancel func()
}

// Registry fans messages out to subscribers synchronously, in registration order.
// All methods are safe for concurrent use.
//
// Publishes are serialized: one publish delivers to every subscriber before
// the next one starts. A handler must not call Publish on the same registry.
type Registry[T any] struct {
	mu        sync.Mutex
	publishMu sync.Mutex
	subs      []*subscription[T]
	closed    bool
	logger    *slog.Logger
	name      string
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used to report failing handlers.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels log records emitted by the registry.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// NewRegistry creates an empty registry.
func NewRegistry[T any](opts ...Option) *Registry[T] {
	o := &options{logger: slog.Default(), name: "broadcast"}
	for _, opt := range opts {
		opt(o)
	}
	return &Registry[T]{logger: o.logger, name: o.name}
}

// Subscribe registers fn and returns the handle that removes exactly this
// registration. Subscribing to a closed registry returns a no-op handle.
func (r *Registry[T]) Subscribe(fn Handler[T]) CancelFunc {
	return r.subscribe(fn, nil)
}

func (r *Registry[T]) subscribe(fn Handler[T], onCancel func()) CancelFunc {
	if fn == nil {
		return func() {}
	}

	sub := &subscription[T]{handler: fn, onCancel: onCancel}
	sub.active.Store(true)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.cancel(sub)
		return func() {}
	}
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return func() { r.cancel(sub) }
}

func (r *Registry[T]) cancel(sub *subscription[T]) {
	sub.once.Do(func() {
		sub.active.Store(false)

		r.mu.Lock()
		if i := slices.Index(r.subs, sub); i >= 0 {
			r.subs = slices.Delete(r.subs, i, i+1)
		}
		r.mu.Unlock()

		if sub.onCancel != nil {
			sub.onCancel()
		}
	})
}

// Publish delivers msg to every subscriber registered when the call starts,
// in registration order, and returns the number of handlers that succeeded.
// Subscribers added during the publish may miss msg; subscribers cancelled
// during the publish are skipped if they have not been reached yet.
func (r *Registry[T]) Publish(ctx context.Context, msg T) int {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	snapshot := slices.Clone(r.subs)
	r.mu.Unlock()

	delivered := 0
	for i, sub := range snapshot {
		if !sub.active.Load() {
			continue
		}
		if err := r.deliver(ctx, sub, msg); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "subscriber failed",
				logger.Component(r.name),
				logger.Subscriber(i),
				logger.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry[T]) deliver(ctx context.Context, sub *subscription[T], msg T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, rec)
		}
	}()
	return sub.handler(ctx, msg)
}

// Len returns the number of active subscribers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close cancels every subscription. Later publishes are no-ops. Safe to call twice.
func (r *Registry[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := slices.Clone(r.subs)
	r.mu.Unlock()

	for _, sub := range subs {
		r.cancel(sub)
	}
	return nil
}
