package changefeed

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrSourceClosed is returned when streaming from a closed source.
	ErrSourceClosed = errors.New("changefeed: source is closed")

	// ErrNoTables is returned when Stream is called without tables.
	ErrNoTables = errors.New("changefeed: no tables to watch")
)

// Source delivers row changes for a set of tables on a single channel.
// Events of one table arrive in commit order; there is no ordering across
// tables. Delivery is at-least-once at best. The channel is closed when ctx
// is done or the source gives up.
type Source interface {
	Stream(ctx context.Context, tables ...Table) (<-chan Event, error)
}

// MemorySource is a Source fed by Emit. Suitable for tests and local demos.
type MemorySource struct {
	emitMu  sync.Mutex
	mu      sync.Mutex
	streams []*memoryStream
	closed  bool
	buffer  int
}

type memoryStream struct {
	ch     chan Event
	done   chan struct{}
	tables []Table
	sendMu sync.Mutex
	once   sync.Once
}

// send blocks until ev is buffered, the stream is shut down or ctx is done.
// A shut down stream drops ev.
func (st *memoryStream) send(ctx context.Context, ev Event) error {
	st.sendMu.Lock()
	defer st.sendMu.Unlock()

	select {
	case <-st.done:
		return nil
	default:
	}

	select {
	case st.ch <- ev:
		return nil
	case <-st.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (st *memoryStream) shutdown() {
	st.once.Do(func() {
		close(st.done)
		st.sendMu.Lock()
		close(st.ch)
		st.sendMu.Unlock()
	})
}

// NewMemorySource creates a source whose streams buffer up to buffer events.
func NewMemorySource(buffer int) *MemorySource {
	return &MemorySource{buffer: max(buffer, 1)}
}

func (s *MemorySource) Stream(ctx context.Context, tables ...Table) (<-chan Event, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}

	st := &memoryStream{
		ch:     make(chan Event, s.buffer),
		done:   make(chan struct{}),
		tables: slices.Clone(tables),
	}
	s.streams = append(s.streams, st)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.remove(st)
			case <-st.done:
			}
		}()
	}

	return st.ch, nil
}

// Emit hands ev to every stream watching its table. It blocks while a
// stream's buffer is full, preserving per-table order. A stream whose
// consumer goes away while Emit waits is skipped.
func (s *MemorySource) Emit(ctx context.Context, ev Event) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSourceClosed
	}
	streams := slices.Clone(s.streams)
	s.mu.Unlock()

	for _, st := range streams {
		if !slices.Contains(st.tables, ev.Table()) {
			continue
		}
		if err := st.send(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every open stream, releasing any blocked Emit.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	streams := s.streams
	s.streams = nil
	s.mu.Unlock()

	for _, st := range streams {
		st.shutdown()
	}
	return nil
}

func (s *MemorySource) remove(st *memoryStream) {
	s.mu.Lock()
	if i := slices.Index(s.streams, st); i >= 0 {
		s.streams = slices.Delete(s.streams, i, i+1)
	}
	s.mu.Unlock()

	st.shutdown()
}
