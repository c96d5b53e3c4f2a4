package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roulettehub/subgate/pkg/pg"
	"github.com/roulettehub/subgate/pkg/subscription"
)

const selectUser = `
	SELECT u.id, u.email, u.last_active_at, u.created_at,
		COALESCE(jsonb_object_agg(l.provider, l.customer_id) FILTER (WHERE l.provider IS NOT NULL), '{}'::jsonb)
	FROM users u
	LEFT JOIN customer_links l ON l.user_id = u.id`

const (
	getUserByIDQuery = selectUser + `
	WHERE u.id = $1
	GROUP BY u.id`

	getUserByCustomerQuery = selectUser + `
	WHERE u.id = (SELECT user_id FROM customer_links WHERE provider = $1 AND customer_id = $2)
	GROUP BY u.id`

	findLatestUnlinkedQuery = selectUser + `
	WHERE u.last_active_at >= $2
		AND NOT EXISTS (SELECT 1 FROM customer_links x WHERE x.user_id = u.id AND x.provider = $1)
	GROUP BY u.id
	ORDER BY u.last_active_at DESC
	LIMIT 1`

	linkCustomerQuery = `
		INSERT INTO customer_links (user_id, provider, customer_id)
		VALUES ($1, $2, $3)`

	upsertUserQuery = `
		INSERT INTO users (id, email, last_active_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, last_active_at = EXCLUDED.last_active_at`

	deleteLinksQuery = `DELETE FROM customer_links WHERE user_id = $1`
)

func scanUser(row pgx.Row) (*subscription.User, error) {
	var (
		u     subscription.User
		links map[string]string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.LastActiveAt, &u.CreatedAt, &links); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrUserNotFound
		}
		return nil, wrap("scan user", err)
	}
	if len(links) > 0 {
		u.CustomerIDs = make(map[subscription.ProviderName]string, len(links))
		for p, id := range links {
			u.CustomerIDs[subscription.ProviderName(p)] = id
		}
	}
	return &u, nil
}

// PutUser inserts or updates a user and replaces its customer links. Users
// are owned by the application; this is used for seeding and tests.
func (s *Store) PutUser(ctx context.Context, u subscription.User) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		created := u.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.Exec(ctx, upsertUserQuery, u.ID, u.Email, u.LastActiveAt.UTC(), created.UTC()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteLinksQuery, u.ID); err != nil {
			return err
		}
		for p, id := range u.CustomerIDs {
			if id == "" {
				continue
			}
			if _, err := tx.Exec(ctx, linkCustomerQuery, u.ID, p.String(), id); err != nil {
				return err
			}
		}
		return nil
	})
	if pg.IsDuplicateKeyError(err) {
		return subscription.ErrCustomerAlreadyLinked
	}
	if err != nil {
		return wrap("put user", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, userID string) (*subscription.User, error) {
	return scanUser(s.db.QueryRow(ctx, getUserByIDQuery, userID))
}

func (s *Store) GetByCustomerID(ctx context.Context, provider subscription.ProviderName, customerID string) (*subscription.User, error) {
	return scanUser(s.db.QueryRow(ctx, getUserByCustomerQuery, provider.String(), customerID))
}

func (s *Store) FindLatestUnlinked(ctx context.Context, provider subscription.ProviderName, since time.Time) (*subscription.User, error) {
	return scanUser(s.db.QueryRow(ctx, findLatestUnlinkedQuery, provider.String(), since.UTC()))
}

// LinkCustomer inserts the link row. The primary key (user_id, provider)
// rejects a second link for the user and the unique (provider, customer_id)
// constraint rejects a customer held by another user.
func (s *Store) LinkCustomer(ctx context.Context, userID string, provider subscription.ProviderName, customerID string) error {
	_, err := s.db.Exec(ctx, linkCustomerQuery, userID, provider.String(), customerID)
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return subscription.ErrUserNotFound
	case pg.IsDuplicateKeyError(err):
		u, gerr := s.GetByID(ctx, userID)
		if gerr != nil {
			return gerr
		}
		if id, ok := u.CustomerID(provider); ok && id == customerID {
			return nil
		}
		return subscription.ErrCustomerAlreadyLinked
	default:
		return wrap("link customer", err)
	}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
