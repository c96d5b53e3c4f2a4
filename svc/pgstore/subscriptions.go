package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/roulettehub/subgate/pkg/pg"
	"github.com/roulettehub/subgate/pkg/subscription"
)

const selectSubscription = `
	SELECT provider, provider_subscription_id, user_id, plan_id, status,
		last_event_type, last_event_at, expires_at, created_at, updated_at, version
	FROM subscriptions`

const (
	getByProviderIDQuery = selectSubscription + `
	WHERE provider = $1 AND provider_subscription_id = $2`

	getCurrentQuery = selectSubscription + `
	WHERE user_id = $1 AND ($2 = '' OR provider = $2)
	ORDER BY updated_at DESC
	LIMIT 1`

	insertSubscriptionQuery = `
		INSERT INTO subscriptions (
			provider, provider_subscription_id, user_id, plan_id, status,
			last_event_type, last_event_at, expires_at, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`

	updateSubscriptionQuery = `
		UPDATE subscriptions
		SET user_id = $3, plan_id = $4, status = $5, last_event_type = $6,
			last_event_at = $7, expires_at = $8, updated_at = $9, version = version + 1
		WHERE provider = $1 AND provider_subscription_id = $2 AND version = $10`
)

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub      subscription.Subscription
		provider string
		status   string
	)
	err := row.Scan(
		&provider, &sub.ProviderSubscriptionID, &sub.UserID, &sub.PlanID, &status,
		&sub.LastEventType, &sub.LastEventAt, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt, &sub.Version,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, wrap("scan subscription", err)
	}
	sub.Provider = subscription.ProviderName(provider)
	sub.Status = subscription.Status(status)
	return &sub, nil
}

func (s *Store) GetByProviderID(ctx context.Context, provider subscription.ProviderName, providerSubscriptionID string) (*subscription.Subscription, error) {
	return scanSubscription(s.db.QueryRow(ctx, getByProviderIDQuery, provider.String(), providerSubscriptionID))
}

func (s *Store) GetCurrent(ctx context.Context, userID string, provider subscription.ProviderName) (*subscription.Subscription, error) {
	return scanSubscription(s.db.QueryRow(ctx, getCurrentQuery, userID, provider.String()))
}

func (s *Store) Save(ctx context.Context, sub *subscription.Subscription) error {
	if sub.Version == 0 {
		_, err := s.db.Exec(ctx, insertSubscriptionQuery,
			sub.Provider.String(), sub.ProviderSubscriptionID, sub.UserID, sub.PlanID, string(sub.Status),
			sub.LastEventType, sub.LastEventAt.UTC(), sub.ExpiresAt, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
		)
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrConcurrentUpdate
		}
		if err != nil {
			return wrap("insert subscription", err)
		}
		sub.Version = 1
		return nil
	}

	tag, err := s.db.Exec(ctx, updateSubscriptionQuery,
		sub.Provider.String(), sub.ProviderSubscriptionID, sub.UserID, sub.PlanID, string(sub.Status),
		sub.LastEventType, sub.LastEventAt.UTC(), sub.ExpiresAt, sub.UpdatedAt.UTC(), sub.Version,
	)
	if err != nil {
		return wrap("update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrConcurrentUpdate
	}
	sub.Version++
	return nil
}
