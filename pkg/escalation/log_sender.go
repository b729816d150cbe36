package escalation

import (
	"context"
	"log/slog"

	"github.com/sakhi-health/notifycore/pkg/logger"
)

// LogSender writes escalation emails to a logger instead of sending them.
// Used in development and when Postmark is not configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger means slog.Default().
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) SendEmail(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "escalation email",
		logger.Component("escalation"),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
		slog.Int("body_bytes", len(msg.BodyHTML)),
	)
	return nil
}
