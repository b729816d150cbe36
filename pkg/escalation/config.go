package escalation

import "time"

// Config controls which notifications are escalated and where they go.
// Postmark tokens are optional so development setups can log instead of send.
type Config struct {
	Enabled     bool          `env:"ESCALATION_ENABLED" envDefault:"false"`
	To          string        `env:"ESCALATION_TO"`
	MinPriority string        `env:"ESCALATION_MIN_PRIORITY" envDefault:"high"`
	QueueSize   int           `env:"ESCALATION_QUEUE_SIZE" envDefault:"32"`
	SendTimeout time.Duration `env:"ESCALATION_SEND_TIMEOUT" envDefault:"10s"`
	Postmark    PostmarkConfig
}

// PostmarkConfig holds credentials and sender identity for Postmark.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
	SupportEmail string `env:"SUPPORT_EMAIL"`
}

// Configured reports whether both tokens are set.
func (c PostmarkConfig) Configured() bool {
	return c.ServerToken != "" && c.AccountToken != ""
}
