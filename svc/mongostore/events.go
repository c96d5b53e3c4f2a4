package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/roulettehub/subgate/pkg/mongo"
	"github.com/roulettehub/subgate/pkg/subscription"
)

type eventDoc struct {
	ID          string    `bson:"_id"`
	Provider    string    `bson:"provider"`
	EventID     string    `bson:"event_id"`
	EventType   string    `bson:"event_type"`
	Payload     string    `bson:"payload,omitempty"`
	ProcessedAt time.Time `bson:"processed_at"`
}

func (s *Store) HasProcessed(ctx context.Context, provider subscription.ProviderName, eventID string) (bool, error) {
	n, err := s.events.CountDocuments(ctx,
		bson.D{{Key: "_id", Value: compositeID(provider, eventID)}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, wrap("count processed events", err)
	}
	return n > 0, nil
}

func (s *Store) MarkProcessed(ctx context.Context, rec subscription.ProcessedEvent) error {
	_, err := s.events.InsertOne(ctx, eventDoc{
		ID:          compositeID(rec.Provider, rec.EventID),
		Provider:    rec.Provider.String(),
		EventID:     rec.EventID,
		EventType:   rec.EventType,
		Payload:     string(rec.Payload),
		ProcessedAt: rec.ProcessedAt.UTC(),
	})
	if pkgmongo.IsDuplicateKeyError(err) {
		return subscription.ErrDuplicateEvent
	}
	if err != nil {
		return wrap("insert processed event", err)
	}
	return nil
}

func (s *Store) Release(ctx context.Context, provider subscription.ProviderName, eventID string) error {
	_, err := s.events.DeleteOne(ctx, bson.D{{Key: "_id", Value: compositeID(provider, eventID)}})
	if err != nil {
		return wrap("delete processed event", err)
	}
	return nil
}
