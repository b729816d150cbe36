// Command notifyd turns database row changes into dashboard notifications.
//
// It listens for Postgres NOTIFY events, records notifications in a durable
// ledger and serves them over HTTP, including a datastar SSE stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sakhi-health/notifycore/pkg/changefeed"
	"github.com/sakhi-health/notifycore/pkg/config"
	"github.com/sakhi-health/notifycore/pkg/escalation"
	"github.com/sakhi-health/notifycore/pkg/kvstore"
	"github.com/sakhi-health/notifycore/pkg/logger"
	"github.com/sakhi-health/notifycore/pkg/notifications"
	"github.com/sakhi-health/notifycore/pkg/notifyapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.Load(&cfg, config.WithPrefix("NOTIFY_")); err != nil {
		return err
	}

	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.ServiceName))
	logger.SetAsDefault(log)

	normalizer, err := newNormalizer(cfg.RoutesFile)
	if err != nil {
		return err
	}

	store, err := kvstore.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	svc := notifications.NewService(
		notifications.NewKVStorage(store, cfg.KeyPrefix),
		notifications.WithLogger(log),
		notifications.WithNormalizer(normalizer),
		notifications.WithLedgerOptions(notifications.WithCapacity(cfg.Capacity)),
	)
	svc.Init(ctx)
	defer func() {
		errs := []error{svc.Close(), store.Close()}
		if errors.Join(errs...) != nil {
			log.Error("shutdown left resources open", logger.Errors(errs...))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Escalation.Enabled {
		esc, err := escalation.New(newSender(cfg.Escalation, log), cfg.Escalation,
			escalation.WithLogger(log),
			escalation.WithBaseURL(cfg.PublicURL),
		)
		if err != nil {
			return fmt.Errorf("configuring escalation: %w", err)
		}
		cancel := svc.Subscribe(esc.Handle)
		defer cancel()
		g.Go(func() error { return esc.Run(ctx) })
	}

	checks := []func(context.Context) error{kvstore.Healthcheck(store)}

	if cfg.Postgres.ConnectionString != "" {
		pool, err := changefeed.Connect(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := changefeed.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			return err
		}
		checks = append(checks, changefeed.Healthcheck(pool))

		src := changefeed.NewPostgresSource(pool, cfg.Postgres, changefeed.WithPostgresLogger(log))
		g.Go(func() error {
			err := svc.Run(ctx, src, cfg.tables()...)
			if errors.Is(err, notifications.ErrStreamClosed) && ctx.Err() != nil {
				return nil
			}
			return err
		})
	} else {
		log.WarnContext(ctx, "no postgres connection configured, change feed disabled")
	}

	router := notifyapi.NewRouter(svc,
		notifyapi.WithLogger(log),
		notifyapi.WithStreamBuffer(cfg.StreamBuffer),
		notifyapi.WithReadinessChecks(checks...),
	)
	srv := notifyapi.NewServer(cfg.HTTP, log)
	g.Go(func() error { return srv.Run(ctx, router) })

	return g.Wait()
}

func newNormalizer(routesFile string) (*notifications.Normalizer, error) {
	if routesFile == "" {
		return notifications.NewNormalizer(), nil
	}
	f, err := os.Open(routesFile)
	if err != nil {
		return nil, fmt.Errorf("opening routes file: %w", err)
	}
	defer f.Close()

	routes, err := notifications.LoadRoutes(f)
	if err != nil {
		return nil, err
	}
	return notifications.NewNormalizer(notifications.WithRoutes(routes)), nil
}

func newSender(cfg escalation.Config, log *slog.Logger) escalation.EmailSender {
	if !cfg.Postmark.Configured() {
		log.Warn("postmark is not configured, escalation emails are only logged")
		return escalation.NewLogSender(log)
	}
	sender, err := escalation.NewPostmarkSender(cfg.Postmark)
	if err != nil {
		log.Error("invalid postmark config, escalation emails are only logged", logger.Error(err))
		return escalation.NewLogSender(log)
	}
	return sender
}
