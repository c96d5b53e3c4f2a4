package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roulettehub/subgate/pkg/config"
	"github.com/roulettehub/subgate/pkg/httpserver"
	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/mongo"
	"github.com/roulettehub/subgate/pkg/pg"
	"github.com/roulettehub/subgate/pkg/redis"
	"github.com/roulettehub/subgate/pkg/subscription"
	"github.com/roulettehub/subgate/svc/mongostore"
	"github.com/roulettehub/subgate/svc/pgstore"
	"github.com/roulettehub/subgate/svc/redisstore"
)

var (
	errUnknownDriver = errors.New("unknown store driver")
	errUnknownLedger = errors.New("unknown event ledger")
)

// stores holds the datastore handles shared by the dispatcher and the gate.
type stores struct {
	events subscription.EventStore
	users  subscription.UserStore
	subs   subscription.SubscriptionStore

	checks  []httpserver.Check
	closers []func(context.Context) error
}

func (s *stores) close(ctx context.Context, log *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.ErrorContext(ctx, "failed to close datastore", logger.Error(err))
		}
	}
}

// openStores connects the configured backends. The caller must call close
// even when an error is returned.
func openStores(ctx context.Context, cfg appConfig, log *slog.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.StoreDriver {
	case driverMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return s, err
		}
		db, err := mongo.NewWithDatabase(ctx, mcfg)
		if err != nil {
			return s, err
		}
		s.closers = append(s.closers, db.Client().Disconnect)
		s.checks = append(s.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(db.Client())})

		store := mongostore.New(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return s, err
		}
		s.events, s.users, s.subs = store, store, store

	case driverPostgres:
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return s, err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return s, err
		}
		s.closers = append(s.closers, func(context.Context) error { pool.Close(); return nil })
		s.checks = append(s.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})

		if pcfg.AutoMigrate {
			if err := pgstore.Migrate(ctx, pool, pcfg, log); err != nil {
				return s, err
			}
		}
		store := pgstore.New(pool)
		s.events, s.users, s.subs = store, store, store

	case driverMemory:
		log.WarnContext(ctx, "using in-memory store, state is lost on restart")
		store := subscription.NewMemoryStore()
		s.events, s.users, s.subs = store, store, store

	default:
		return s, fmt.Errorf("%w: %q", errUnknownDriver, cfg.StoreDriver)
	}

	switch cfg.EventLedger {
	case "", ledgerStore:
	case ledgerRedis:
		events, err := openRedisLedger(ctx, cfg, s)
		if err != nil {
			return s, err
		}
		s.events = events
	default:
		return s, fmt.Errorf("%w: %q", errUnknownLedger, cfg.EventLedger)
	}

	return s, nil
}

func openRedisLedger(ctx context.Context, cfg appConfig, s *stores) (subscription.EventStore, error) {
	var rcfg redis.Config
	if err := config.Load(&rcfg); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, rcfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	s.checks = append(s.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	return redisstore.New(client, redisstore.WithRetention(cfg.EventRetention)), nil
}

// closeTimeout bounds datastore disconnects at shutdown.
const closeTimeout = 5 * time.Second
