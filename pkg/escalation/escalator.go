package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakhi-health/notifycore/pkg/logger"
	"github.com/sakhi-health/notifycore/pkg/notifications"
)

// Escalator emails notifications at or above a minimum priority. Handle only
// enqueues, so it is safe to use as a subscriber on the publish path; Run
// does the sending.
type Escalator struct {
	sender      EmailSender
	to          string
	minPriority notifications.Priority
	baseURL     string
	timeout     time.Duration
	queue       chan notifications.Notification
	logger      *slog.Logger

	mu      sync.RWMutex
	stopped bool
}

// Option configures an Escalator.
type Option func(*Escalator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Escalator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBaseURL makes dashboard links in emails absolute.
func WithBaseURL(u string) Option {
	return func(e *Escalator) { e.baseURL = u }
}

// New creates an escalator sending to cfg.To.
func New(sender EmailSender, cfg Config, opts ...Option) (*Escalator, error) {
	if !emailRegex.MatchString(cfg.To) {
		return nil, ErrInvalidConfig
	}
	minPriority := notifications.Priority(cfg.MinPriority)
	switch minPriority {
	case notifications.PriorityLow, notifications.PriorityMedium, notifications.PriorityHigh:
	case "":
		minPriority = notifications.PriorityHigh
	default:
		return nil, ErrInvalidConfig
	}

	e := &Escalator{
		sender:      sender,
		to:          cfg.To,
		minPriority: minPriority,
		timeout:     cfg.SendTimeout,
		queue:       make(chan notifications.Notification, max(cfg.QueueSize, 1)),
		logger:      slog.Default(),
	}
	if e.timeout <= 0 {
		e.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Handle enqueues n when its priority qualifies. It never blocks: when the
// queue is full the notification is dropped and ErrQueueFull is returned.
func (e *Escalator) Handle(_ context.Context, n notifications.Notification) error {
	if n.Read || n.Priority.Rank() < e.minPriority.Rank() {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return ErrStopped
	}
	select {
	case e.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run sends queued notifications until ctx is done. Notifications still
// queued at that point are discarded.
func (e *Escalator) Run(ctx context.Context) error {
	defer e.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-e.queue:
			e.send(ctx, n)
		}
	}
}

func (e *Escalator) send(ctx context.Context, n notifications.Notification) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := render(ctx, Body(n, e.baseURL))
	if err == nil {
		err = e.sender.SendEmail(ctx, Message{
			To:       e.to,
			Subject:  n.Title + " " + n.Message,
			BodyHTML: body,
			Tag:      string(n.Kind),
		})
	}
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "failed to send escalation email",
			logger.Component("escalation"),
			logger.NotificationID(n.ID),
			logger.Kind(string(n.Kind)),
			logger.Error(err),
		)
		return
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "notification escalated",
		logger.Component("escalation"),
		logger.NotificationID(n.ID),
		logger.Kind(string(n.Kind)),
	)
}

func (e *Escalator) stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}
