package subscription

import (
	"context"
	"time"
)

// EventStore is the idempotency ledger of processed webhook events.
type EventStore interface {
	// HasProcessed reports whether the event was already recorded.
	HasProcessed(ctx context.Context, provider ProviderName, eventID string) (bool, error)

	// MarkProcessed records the event. Implementations must rely on an atomic
	// unique constraint on (provider, event id) and return ErrDuplicateEvent
	// when it is violated.
	MarkProcessed(ctx context.Context, rec ProcessedEvent) error

	// Release deletes the record so a later redelivery is processed again.
	// Only used when applying the event failed because the datastore was
	// unavailable.
	Release(ctx context.Context, provider ProviderName, eventID string) error
}

// UserStore reads users and manages their provider customer links.
type UserStore interface {
	// GetByID returns ErrUserNotFound when no such user exists.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByCustomerID returns ErrUserNotFound when no user is linked to the
	// provider customer id.
	GetByCustomerID(ctx context.Context, provider ProviderName, customerID string) (*User, error)

	// FindLatestUnlinked returns the most recently active user, active at or
	// after since, that has no customer link for provider. ErrUserNotFound
	// when there is none.
	FindLatestUnlinked(ctx context.Context, provider ProviderName, since time.Time) (*User, error)

	// LinkCustomer sets the user's customer id for provider only if the user
	// has none yet and no other user holds that customer id. Re-linking the
	// same pair is a no-op. Otherwise ErrCustomerAlreadyLinked.
	LinkCustomer(ctx context.Context, userID string, provider ProviderName, customerID string) error
}

// SubscriptionStore is the single repository of subscription state.
type SubscriptionStore interface {
	// GetByProviderID returns ErrSubscriptionNotFound when absent.
	GetByProviderID(ctx context.Context, provider ProviderName, providerSubscriptionID string) (*Subscription, error)

	// GetCurrent returns the user's most recently updated subscription,
	// restricted to provider unless provider is empty. It always reads the
	// backend; callers rely on it for per-request access checks.
	GetCurrent(ctx context.Context, userID string, provider ProviderName) (*Subscription, error)

	// Save inserts sub when sub.Version is zero, or updates it when the stored
	// version equals sub.Version. Either way the key is
	// (Provider, ProviderSubscriptionID). On success sub.Version is
	// incremented. A lost race yields ErrConcurrentUpdate.
	Save(ctx context.Context, sub *Subscription) error
}
