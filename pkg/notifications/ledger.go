package notifications

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakhi-health/notifycore/pkg/logger"
)

// DefaultCapacity is the number of notifications kept in the log.
const DefaultCapacity = 50

// Ledger keeps the unread counter and the capped log, most recent first,
// and persists both after every mutation. All methods are safe for
// concurrent use.
//
// Persistence is best effort: write failures are logged and the in-memory
// state stays authoritative for the rest of the process lifetime.
//
// Evicting an unread entry past the cap decrements the counter, so the
// counter always equals the number of unread entries in the log.
type Ledger struct {
	mu       sync.RWMutex
	storage  Storage
	capacity int
	unread   int
	log      []Notification
	logger   *slog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithCapacity sets the maximum log length. Non-positive values are ignored.
func WithCapacity(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithLedgerLogger sets the logger for the Ledger.
func WithLedgerLogger(log *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLedger creates an empty ledger. Call Load to restore persisted state.
func NewLedger(storage Storage, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		storage:  storage,
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the in-memory state with the persisted one. It never fails:
// unreadable state starts the ledger empty, and a counter that disagrees with
// the log is recomputed from the log.
func (l *Ledger) Load(ctx context.Context) {
	st, err := l.storage.Load(ctx)
	if err != nil {
		l.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load notification ledger, starting empty",
			logger.Component("ledger"),
			logger.Error(err),
		)
		st = State{}
	}

	log := st.Log
	if len(log) > l.capacity {
		log = log[:l.capacity]
	}
	unread := countUnread(log)
	if unread != st.Unread {
		l.logger.LogAttrs(ctx, slog.LevelWarn, "persisted unread counter disagrees with log, recomputing",
			logger.Component("ledger"),
			slog.Int("persisted", st.Unread),
			slog.Int("recomputed", unread),
		)
	}

	l.mu.Lock()
	l.log = slices.Clone(log)
	l.unread = unread
	l.mu.Unlock()
}

// Record prepends n, evicts entries past the capacity and persists.
func (l *Ledger) Record(ctx context.Context, n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log = slices.Insert(l.log, 0, n)
	if !n.Read {
		l.unread++
	}
	if len(l.log) > l.capacity {
		for _, evicted := range l.log[l.capacity:] {
			if !evicted.Read {
				l.unread--
			}
		}
		l.log = slices.Delete(l.log, l.capacity, len(l.log))
	}
	l.persistLocked(ctx)
}

// Snapshot returns a copy of the log, most recent first.
func (l *Ledger) Snapshot() []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Notification, len(l.log))
	copy(out, l.log)
	return out
}

// Get returns the entry with id.
func (l *Ledger) Get(id string) (Notification, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.log[i], true
	}
	return Notification{}, false
}

// UnreadCount returns the number of unread entries.
func (l *Ledger) UnreadCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unread
}

// MarkRead marks the entry read and persists. Unknown or already read ids
// are a no-op without a write. Reports whether the state changed.
func (l *Ledger) MarkRead(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 || l.log[i].Read {
		return false
	}
	l.log[i].Read = true
	l.unread = max(l.unread-1, 0)
	l.persistLocked(ctx)
	return true
}

// MarkAllRead marks every entry read, zeroes the counter and persists once.
func (l *Ledger) MarkAllRead(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.log {
		l.log[i].Read = true
	}
	l.unread = 0
	l.persistLocked(ctx)
}

// Delete removes the entry and persists; removing an unread entry decrements
// the counter. Unknown ids are a no-op. Reports whether an entry was removed.
func (l *Ledger) Delete(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	if !l.log[i].Read {
		l.unread = max(l.unread-1, 0)
	}
	l.log = slices.Delete(l.log, i, i+1)
	l.persistLocked(ctx)
	return true
}

// ClearAll empties the log, zeroes the counter and persists.
func (l *Ledger) ClearAll(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log = nil
	l.unread = 0
	l.persistLocked(ctx)
}

func (l *Ledger) indexLocked(id string) int {
	return slices.IndexFunc(l.log, func(n Notification) bool { return n.ID == id })
}

func (l *Ledger) persistLocked(ctx context.Context) {
	st := State{Unread: l.unread, Log: slices.Clone(l.log)}
	if err := l.storage.Save(ctx, st); err != nil {
		l.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist notification ledger",
			logger.Component("ledger"),
			logger.Count(len(st.Log)),
			logger.Error(err),
		)
	}
}

func countUnread(log []Notification) int {
	n := 0
	for _, e := range log {
		if !e.Read {
			n++
		}
	}
	return n
}
