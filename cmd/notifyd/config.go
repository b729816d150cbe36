package main

import (
	"github.com/sakhi-health/notifycore/pkg/changefeed"
	"github.com/sakhi-health/notifycore/pkg/escalation"
	"github.com/sakhi-health/notifycore/pkg/kvstore"
	"github.com/sakhi-health/notifycore/pkg/notifyapi"
)

// Config is read from NOTIFY_-prefixed environment variables.
type Config struct {
	Env          string   `env:"APP_ENV" envDefault:"development"`
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"notifyd"`
	Capacity     int      `env:"LEDGER_CAPACITY" envDefault:"50"`
	KeyPrefix    string   `env:"LEDGER_KEY_PREFIX"`
	RoutesFile   string   `env:"ROUTES_FILE"`
	Tables       []string `env:"WATCH_TABLES" envSeparator:","`
	StreamBuffer int      `env:"SSE_BUFFER" envDefault:"16"`
	PublicURL    string   `env:"PUBLIC_URL"`

	HTTP       notifyapi.Config
	Store      kvstore.Config
	Postgres   changefeed.PostgresConfig
	Escalation escalation.Config
}

func (c Config) tables() []changefeed.Table {
	if len(c.Tables) == 0 {
		return changefeed.DefaultTables
	}
	out := make([]changefeed.Table, 0, len(c.Tables))
	for _, t := range c.Tables {
		out = append(out, changefeed.Table(t))
	}
	return out
}
