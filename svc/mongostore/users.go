package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/roulettehub/subgate/pkg/mongo"
	"github.com/roulettehub/subgate/pkg/subscription"
)

type userDoc struct {
	ID           string            `bson:"_id"`
	Email        string            `bson:"email,omitempty"`
	CustomerIDs  map[string]string `bson:"customer_ids,omitempty"`
	LastActiveAt time.Time         `bson:"last_active_at"`
	CreatedAt    time.Time         `bson:"created_at"`
}

func (d *userDoc) toUser() *subscription.User {
	u := &subscription.User{
		ID:           d.ID,
		Email:        d.Email,
		LastActiveAt: d.LastActiveAt,
		CreatedAt:    d.CreatedAt,
	}
	if len(d.CustomerIDs) > 0 {
		u.CustomerIDs = make(map[subscription.ProviderName]string, len(d.CustomerIDs))
		for p, id := range d.CustomerIDs {
			u.CustomerIDs[subscription.ProviderName(p)] = id
		}
	}
	return u
}

// PutUser inserts or replaces a user document. Users are owned by the
// application; this is used for seeding and tests.
func (s *Store) PutUser(ctx context.Context, u subscription.User) error {
	doc := userDoc{
		ID:           u.ID,
		Email:        u.Email,
		LastActiveAt: u.LastActiveAt.UTC(),
		CreatedAt:    u.CreatedAt.UTC(),
	}
	for p, id := range u.CustomerIDs {
		if id == "" {
			continue
		}
		if doc.CustomerIDs == nil {
			doc.CustomerIDs = make(map[string]string)
		}
		doc.CustomerIDs[p.String()] = id
	}

	_, err := s.users.ReplaceOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, doc, options.Replace().SetUpsert(true))
	if pkgmongo.IsDuplicateKeyError(err) {
		return subscription.ErrCustomerAlreadyLinked
	}
	if err != nil {
		return wrap("upsert user", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) (*subscription.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter, opts...).Decode(&doc)
	if pkgmongo.IsNotFoundError(err) {
		return nil, subscription.ErrUserNotFound
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return doc.toUser(), nil
}

func (s *Store) GetByID(ctx context.Context, userID string) (*subscription.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: userID}})
}

func (s *Store) GetByCustomerID(ctx context.Context, provider subscription.ProviderName, customerID string) (*subscription.User, error) {
	return s.findUser(ctx, bson.D{{Key: customerField(provider), Value: customerID}})
}

func (s *Store) FindLatestUnlinked(ctx context.Context, provider subscription.ProviderName, since time.Time) (*subscription.User, error) {
	filter := bson.D{
		{Key: customerField(provider), Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "last_active_at", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
	}
	return s.findUser(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "last_active_at", Value: -1}}))
}

// LinkCustomer sets the link with a filter that only matches a user without
// one, so two concurrent links cannot both succeed. The unique index on the
// customer field rejects a customer id already held by another user.
func (s *Store) LinkCustomer(ctx context.Context, userID string, provider subscription.ProviderName, customerID string) error {
	field := customerField(provider)
	res, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: userID},
			{Key: field, Value: bson.D{{Key: "$exists", Value: false}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: customerID}}}},
	)
	if pkgmongo.IsDuplicateKeyError(err) {
		return s.checkExistingLink(ctx, userID, provider, customerID)
	}
	if err != nil {
		return wrap("link customer", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return s.checkExistingLink(ctx, userID, provider, customerID)
}

// checkExistingLink turns a link that did not apply into nil when the same
// pair is already stored, ErrUserNotFound or ErrCustomerAlreadyLinked.
func (s *Store) checkExistingLink(ctx context.Context, userID string, provider subscription.ProviderName, customerID string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if id, ok := u.CustomerID(provider); ok && id == customerID {
		return nil
	}
	return subscription.ErrCustomerAlreadyLinked
}
