package changefeed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sakhi-health/notifycore/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrFailedToOpenDBConnection = errors.New("changefeed: failed to open db connection")
	ErrFailedToParseDBConfig    = errors.New("changefeed: failed to parse db config")
	ErrFailedToApplyMigrations  = errors.New("changefeed: failed to apply migrations")
	ErrHealthcheckFailed        = errors.New("changefeed: healthcheck failed")
)

// TriggerChannel is the channel the embedded migration's triggers notify.
const TriggerChannel = "row_changes"

// PostgresConfig configures the Postgres change feed.
type PostgresConfig struct {
	ConnectionString string        `env:"PG_CONN_URL"`
	Channel          string        `env:"PG_NOTIFY_CHANNEL" envDefault:"row_changes"`
	MaxConns         int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"4"`
	RetryAttempts    int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
	ReconnectDelay   time.Duration `env:"PG_RECONNECT_DELAY" envDefault:"2s"`
	MigrationsTable  string        `env:"PG_MIGRATIONS_TABLE" envDefault:"notifycore_migrations"`
	Buffer           int           `env:"PG_EVENT_BUFFER" envDefault:"64"`
}

// Connect opens a pgx pool, retrying with a linear backoff.
func Connect(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxConns > 0 {
		connConfig.MaxConns = cfg.MaxConns
	}

	for i := range max(cfg.RetryAttempts, 1) {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}
	return nil, ErrFailedToOpenDBConnection
}

// Healthcheck returns a probe that pings the pool.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Migrate installs the row_changes trigger on the watched tables.
// Tables that do not exist yet are skipped by the migration itself.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg PostgresConfig, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", logger.Error(err))
		}
	}()

	warnForeignChannel(ctx, cfg, log)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error(fmt.Sprintf(format, v...), logger.Component("migrate"))
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info(fmt.Sprintf(format, v...), logger.Component("migrate"))
}

// PostgresSource streams row changes published with pg_notify.
// Notifications sent while the listener is reconnecting are lost.
type PostgresSource struct {
	pool   *pgxpool.Pool
	cfg    PostgresConfig
	logger *slog.Logger
}

// PostgresOption configures a PostgresSource.
type PostgresOption func(*PostgresSource)

// WithPostgresLogger sets the logger for the source.
func WithPostgresLogger(l *slog.Logger) PostgresOption {
	return func(s *PostgresSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPostgresSource creates a source listening on cfg.Channel.
func NewPostgresSource(pool *pgxpool.Pool, cfg PostgresConfig, opts ...PostgresOption) *PostgresSource {
	if cfg.Channel == "" {
		cfg.Channel = TriggerChannel
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	s := &PostgresSource{pool: pool, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	warnForeignChannel(context.Background(), cfg, s.logger)
	return s
}

// warnForeignChannel reports a channel the installed triggers never notify.
func warnForeignChannel(ctx context.Context, cfg PostgresConfig, log *slog.Logger) {
	if cfg.Channel == "" || cfg.Channel == TriggerChannel {
		return
	}
	log.WarnContext(ctx, "notify channel is not the trigger channel",
		logger.Component("changefeed"),
		slog.String("channel", cfg.Channel),
		slog.String("trigger_channel", TriggerChannel),
	)
}

func (s *PostgresSource) Stream(ctx context.Context, tables ...Table) (<-chan Event, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	out := make(chan Event, max(s.cfg.Buffer, 1))
	watched := slices.Clone(tables)

	go func() {
		defer close(out)
		for {
			err := s.listen(ctx, watched, out)
			if ctx.Err() != nil {
				return
			}
			s.logger.WarnContext(ctx, "change feed listener stopped, reconnecting",
				logger.Component("changefeed"),
				logger.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}
		}
	}()

	return out, nil
}

func (s *PostgresSource) listen(ctx context.Context, tables []Table, out chan<- Event) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	// A LISTENing connection must not go back to the pool.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Hijack().Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.cfg.Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Channel, err)
	}
	s.logger.InfoContext(ctx, "listening for row changes",
		logger.Component("changefeed"),
		slog.String("channel", s.cfg.Channel),
	)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev := DecodeEnvelope([]byte(n.Payload))
		if !slices.Contains(tables, ev.Table()) {
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
