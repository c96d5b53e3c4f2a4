package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/roulettehub/subgate/pkg/mongo"
	"github.com/roulettehub/subgate/pkg/subscription"
)

type subscriptionDoc struct {
	ID                     string     `bson:"_id"`
	UserID                 string     `bson:"user_id"`
	Provider               string     `bson:"provider"`
	ProviderSubscriptionID string     `bson:"provider_subscription_id"`
	PlanID                 string     `bson:"plan_id"`
	Status                 string     `bson:"status"`
	LastEventType          string     `bson:"last_event_type"`
	LastEventAt            time.Time  `bson:"last_event_at"`
	ExpiresAt              *time.Time `bson:"expires_at"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
	Version                int64      `bson:"version"`
}

func newSubscriptionDoc(sub *subscription.Subscription, version int64) subscriptionDoc {
	doc := subscriptionDoc{
		ID:                     compositeID(sub.Provider, sub.ProviderSubscriptionID),
		UserID:                 sub.UserID,
		Provider:               sub.Provider.String(),
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		PlanID:                 sub.PlanID,
		Status:                 string(sub.Status),
		LastEventType:          sub.LastEventType,
		LastEventAt:            sub.LastEventAt.UTC(),
		CreatedAt:              sub.CreatedAt.UTC(),
		UpdatedAt:              sub.UpdatedAt.UTC(),
		Version:                version,
	}
	if sub.ExpiresAt != nil {
		t := sub.ExpiresAt.UTC()
		doc.ExpiresAt = &t
	}
	return doc
}

func (d *subscriptionDoc) toSubscription() *subscription.Subscription {
	return &subscription.Subscription{
		UserID:                 d.UserID,
		Provider:               subscription.ProviderName(d.Provider),
		ProviderSubscriptionID: d.ProviderSubscriptionID,
		PlanID:                 d.PlanID,
		Status:                 subscription.Status(d.Status),
		LastEventType:          d.LastEventType,
		LastEventAt:            d.LastEventAt,
		ExpiresAt:              d.ExpiresAt,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		Version:                d.Version,
	}
}

func (s *Store) findSubscription(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) (*subscription.Subscription, error) {
	var doc subscriptionDoc
	err := s.subs.FindOne(ctx, filter, opts...).Decode(&doc)
	if pkgmongo.IsNotFoundError(err) {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, wrap("find subscription", err)
	}
	return doc.toSubscription(), nil
}

func (s *Store) GetByProviderID(ctx context.Context, provider subscription.ProviderName, providerSubscriptionID string) (*subscription.Subscription, error) {
	return s.findSubscription(ctx, bson.D{{Key: "_id", Value: compositeID(provider, providerSubscriptionID)}})
}

func (s *Store) GetCurrent(ctx context.Context, userID string, provider subscription.ProviderName) (*subscription.Subscription, error) {
	filter := bson.D{{Key: "user_id", Value: userID}}
	if provider != "" {
		filter = append(filter, bson.E{Key: "provider", Value: provider.String()})
	}
	return s.findSubscription(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

func (s *Store) Save(ctx context.Context, sub *subscription.Subscription) error {
	doc := newSubscriptionDoc(sub, sub.Version+1)

	if sub.Version == 0 {
		_, err := s.subs.InsertOne(ctx, doc)
		if pkgmongo.IsDuplicateKeyError(err) {
			return subscription.ErrConcurrentUpdate
		}
		if err != nil {
			return wrap("insert subscription", err)
		}
		sub.Version = doc.Version
		return nil
	}

	res, err := s.subs.ReplaceOne(ctx, bson.D{
		{Key: "_id", Value: doc.ID},
		{Key: "version", Value: sub.Version},
	}, doc)
	if err != nil {
		return wrap("replace subscription", err)
	}
	if res.MatchedCount == 0 {
		return subscription.ErrConcurrentUpdate
	}
	sub.Version = doc.Version
	return nil
}
