package notifications

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakhi-health/notifycore/pkg/broadcast"
	"github.com/sakhi-health/notifycore/pkg/changefeed"
	"github.com/sakhi-health/notifycore/pkg/logger"
)

// Handler is called for every new notification, after it has been recorded.
type Handler = broadcast.Handler[Notification]

// Service normalizes change events, records them in the ledger and fans them
// out to subscribers. Create it with NewService and call Init before use.
type Service struct {
	mu         sync.Mutex
	normalizer *Normalizer
	ledger     *Ledger
	registry   *broadcast.Registry[Notification]
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	normalizer *Normalizer
	logger     *slog.Logger
	ledgerOpts []LedgerOption
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *Normalizer) Option {
	return func(o *serviceOptions) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithLogger sets the logger shared by the service, its ledger and registry.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLedgerOptions passes options to the underlying ledger.
func WithLedgerOptions(opts ...LedgerOption) Option {
	return func(o *serviceOptions) {
		o.ledgerOpts = append(o.ledgerOpts, opts...)
	}
}

// NewService wires a service over storage. It does not touch storage until Init.
func NewService(storage Storage, opts ...Option) *Service {
	o := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.normalizer == nil {
		o.normalizer = NewNormalizer()
	}

	ledgerOpts := append([]LedgerOption{WithLedgerLogger(o.logger)}, o.ledgerOpts...)
	return &Service{
		normalizer: o.normalizer,
		ledger:     NewLedger(storage, ledgerOpts...),
		registry: broadcast.NewRegistry[Notification](
			broadcast.WithLogger(o.logger),
			broadcast.WithName("notifications"),
		),
		logger: o.logger,
	}
}

// Init restores the persisted ledger. Unreadable state starts it empty.
func (s *Service) Init(ctx context.Context) {
	s.ledger.Load(ctx)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "notification ledger loaded",
		logger.Component("notifications"),
		logger.Count(len(s.ledger.Snapshot())),
		slog.Int("unread", s.ledger.UnreadCount()),
	)
}

// Handle turns one change event into one notification. The ledger is updated
// and persisted before any subscriber sees it. Calls are serialized, so
// subscribers observe notifications in log order. Subscribers must not call
// Handle.
func (s *Service) Handle(ctx context.Context, ev changefeed.Event) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.normalizer.Normalize(ev)
	ctx = logger.WithNotificationID(ctx, n.ID)
	s.ledger.Record(ctx, n)
	delivered := s.registry.Publish(ctx, n)

	attrs := []slog.Attr{logger.Kind(string(n.Kind)), logger.Count(delivered)}
	if ev != nil {
		attrs = append(attrs, logger.Table(string(ev.Table())), logger.Op(string(ev.Op())))
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification dispatched", attrs...)
	return n
}

// Run handles events from src until ctx is done, returning nil, or the
// stream closes, returning ErrStreamClosed. Without tables it watches
// changefeed.DefaultTables.
func (s *Service) Run(ctx context.Context, src changefeed.Source, tables ...changefeed.Table) error {
	if len(tables) == 0 {
		tables = changefeed.DefaultTables
	}
	events, err := src.Stream(ctx, tables...)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrStreamClosed
			}
			s.Handle(ctx, ev)
		}
	}
}

// Subscribe registers a handler for new notifications. Existing log entries
// are not replayed.
func (s *Service) Subscribe(fn Handler) broadcast.CancelFunc {
	return s.registry.Subscribe(fn)
}

// SubscribeChan delivers new notifications on a buffered channel, dropping
// them when the consumer falls behind.
func (s *Service) SubscribeChan(ctx context.Context, buffer int) (<-chan Notification, broadcast.CancelFunc) {
	return s.registry.SubscribeChan(ctx, buffer)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount() int {
	return s.ledger.UnreadCount()
}

// LoadAll returns a copy of the log, most recent first.
func (s *Service) LoadAll() []Notification {
	return s.ledger.Snapshot()
}

// Get returns the notification with id.
func (s *Service) Get(id string) (Notification, bool) {
	return s.ledger.Get(id)
}

// MarkAsRead marks one notification read. Reports whether it changed.
func (s *Service) MarkAsRead(ctx context.Context, id string) bool {
	return s.ledger.MarkRead(ctx, id)
}

// MarkAllAsRead marks the whole log read.
func (s *Service) MarkAllAsRead(ctx context.Context) {
	s.ledger.MarkAllRead(ctx)
}

// Delete removes one notification. Reports whether it existed.
func (s *Service) Delete(ctx context.Context, id string) bool {
	return s.ledger.Delete(ctx, id)
}

// ClearAll empties the log.
func (s *Service) ClearAll(ctx context.Context) {
	s.ledger.ClearAll(ctx)
}

// Activate marks the notification read and returns its action path.
// ok is false when the id is unknown; path is empty when it has no deep link.
func (s *Service) Activate(ctx context.Context, id string) (path string, ok bool) {
	n, ok := s.ledger.Get(id)
	if !ok {
		return "", false
	}
	s.ledger.MarkRead(ctx, id)
	return n.ActionPath, true
}

// Close drops all subscribers. The ledger stays readable.
func (s *Service) Close() error {
	return s.registry.Close()
}
