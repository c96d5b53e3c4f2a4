package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/roulettehub/subgate/pkg/mongo"
	"github.com/roulettehub/subgate/pkg/subscription"
)

const (
	EventsCollection        = "processed_events"
	UsersCollection         = "users"
	SubscriptionsCollection = "subscriptions"
)

// Providers whose customer links get a unique index.
var linkedProviders = []subscription.ProviderName{
	subscription.ProviderStripe,
	subscription.ProviderAsaas,
}

// Store implements subscription.EventStore, subscription.UserStore and
// subscription.SubscriptionStore.
type Store struct {
	events *mongo.Collection
	users  *mongo.Collection
	subs   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	if db == nil {
		panic("mongostore: database is required")
	}
	return &Store{
		events: db.Collection(EventsCollection),
		users:  db.Collection(UsersCollection),
		subs:   db.Collection(SubscriptionsCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "last_active_at", Value: -1}}},
	}
	for _, p := range linkedProviders {
		field := customerField(p)
		userIndexes = append(userIndexes, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetName("uniq_" + field).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}}}}),
		})
	}
	if err := pkgmongo.EnsureIndexes(ctx, s.users, userIndexes...); err != nil {
		return fmt.Errorf("users: %w", err)
	}

	err := pkgmongo.EnsureIndexes(ctx, s.subs, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "provider", Value: 1},
			{Key: "updated_at", Value: -1},
		},
	}, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("subscriptions: %w", err)
	}
	return nil
}

func compositeID(provider subscription.ProviderName, id string) string {
	return provider.String() + ":" + id
}

func customerField(p subscription.ProviderName) string {
	return "customer_ids." + p.String()
}

// wrap joins connection failures with subscription.ErrStoreUnavailable.
func wrap(op string, err error) error {
	if pkgmongo.IsUnavailable(err) {
		return errors.Join(subscription.ErrStoreUnavailable, fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
