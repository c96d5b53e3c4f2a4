package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roulettehub/subgate/pkg/pg"
	"github.com/roulettehub/subgate/pkg/subscription"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

// Store implements subscription.EventStore, subscription.UserStore and
// subscription.SubscriptionStore.
type Store struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &Store{db: pool}
}

// wrap joins connection failures with subscription.ErrStoreUnavailable.
func wrap(op string, err error) error {
	if pg.IsUnavailable(err) {
		return errors.Join(subscription.ErrStoreUnavailable, fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
