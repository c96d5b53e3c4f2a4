package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/roulettehub/subgate/pkg/redis"
	"github.com/roulettehub/subgate/pkg/subscription"
)

const (
	DefaultKeyPrefix = "subgate:event:"
	DefaultRetention = 30 * 24 * time.Hour
)

// Store is a Redis backed idempotency ledger.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

type Option func(*Store)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets how long a processed event is remembered.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	if client == nil {
		panic("redisstore: client is required")
	}
	s := &Store{
		client:    client,
		prefix:    DefaultKeyPrefix,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is the value stored under an event key. The raw payload is not
// kept; the key alone carries the idempotency guarantee.
type record struct {
	Type        string    `json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
}

func (s *Store) key(provider subscription.ProviderName, eventID string) string {
	return s.prefix + provider.String() + ":" + eventID
}

func (s *Store) HasProcessed(ctx context.Context, provider subscription.ProviderName, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(provider, eventID)).Result()
	if err != nil {
		return false, wrap(err)
	}
	return n > 0, nil
}

func (s *Store) MarkProcessed(ctx context.Context, rec subscription.ProcessedEvent) error {
	val, err := json.Marshal(record{Type: rec.EventType, ProcessedAt: rec.ProcessedAt.UTC()})
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.Provider, rec.EventID), val, s.retention).Result()
	if err != nil {
		return wrap(err)
	}
	if !ok {
		return subscription.ErrDuplicateEvent
	}
	return nil
}

func (s *Store) Release(ctx context.Context, provider subscription.ProviderName, eventID string) error {
	if err := s.client.Del(ctx, s.key(provider, eventID)).Err(); err != nil {
		return wrap(err)
	}
	return nil
}

// wrap marks connection failures so the dispatcher answers 503.
func wrap(err error) error {
	if pkgredis.IsUnavailable(err) {
		return errors.Join(subscription.ErrStoreUnavailable, err)
	}
	return err
}
