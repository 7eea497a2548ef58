// README: Wires config, logger, stores and services shared by the subcommands.
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"riderhub/internal/config"
	"riderhub/internal/events"
	"riderhub/internal/infra"
	"riderhub/internal/logger"
	"riderhub/internal/maps"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/session"
	"riderhub/internal/modules/verification"
)

type app struct {
	cfg      config.Config
	log      *logrus.Logger
	pool     *offer.Pool
	live     offer.LiveSource
	sessions *session.Service
	feed     *offer.Feed
	closers  []func()
}

func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger.New(cfg.Logger), nil
}

// newApp connects the optional backends named in cfg. Each one left empty falls
// back to its in-process implementation.
func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, pool: offer.NewPool()}
	opts := session.Options{
		Log:          log,
		Delivery:     cfg.Delivery,
		Verification: verification.FromConfig(cfg.Verification),
	}

	var pub events.Publisher = events.Nop{}
	if brokers := nonEmpty(cfg.Kafka.Brokers); len(brokers) > 0 {
		kp, err := events.NewKafkaPublisher(brokers, cfg.Kafka.Topic, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = kp.Close() })
		pub = kp
	}
	opts.Publisher = pub
	a.pool.Observe(offer.NewEventObserver(pub, log))

	if cfg.DB.DSN != "" {
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect db: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		opts.Ledgers = earnings.NewPGStore(db)
		opts.Audit = session.NewPGAuditLog(db)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		opts.Claims = offer.NewRedisClaimGuard(rdb, cfg.Offers.ClaimTTL)
		mirror := offer.NewRedisMirror(rdb, log)
		a.pool.Observe(mirror)
		a.live = mirror
	}

	var route offer.RouteEstimator
	if cfg.Maps.APIKey != "" {
		m, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			a.Close()
			return nil, err
		}
		route = m
	}
	a.feed = offer.NewFeed(a.pool, cfg.Offers.Feed, cfg.Delivery.Currency, route, log)
	a.sessions = session.NewService(a.pool, opts)
	return a, nil
}

// runBackground starts the countdown ticker, the verification monitor and,
// when enabled, the offer feed. All stop with ctx.
func (a *app) runBackground(ctx context.Context) {
	go a.pool.RunTicker(ctx, a.cfg.Offers.TickInterval)
	go a.sessions.RunVerificationMonitor(ctx, a.cfg.Verification.CheckInterval)
	if a.cfg.Offers.Feed.Enabled {
		go a.feed.Run(ctx)
	}
}

func (a *app) Close() {
	// flush pool notifications while Kafka and Redis are still open
	a.pool.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
