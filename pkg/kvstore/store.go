package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kvstore: store is closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("kvstore: unknown backend")

	// ErrWriteFailed wraps backend write errors.
	ErrWriteFailed = errors.New("kvstore: write failed")

	// ErrReadFailed wraps backend read errors.
	ErrReadFailed = errors.New("kvstore: read failed")
)

// Store is a string key/value store. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetMany writes all pairs as one batch: either every pair is stored or none is.
	SetMany(ctx context.Context, pairs map[string]string) error

	// Delete removes the keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close releases the underlying resources.
	Close() error
}
