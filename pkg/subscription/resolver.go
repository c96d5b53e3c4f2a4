package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roulettehub/subgate/pkg/logger"
)

// Resolution tells how a provider customer was matched to a user.
type Resolution string

const (
	ResolvedNone      Resolution = "none"
	ResolvedDirect    Resolution = "direct"
	ResolvedReference Resolution = "reference"
	ResolvedHeuristic Resolution = "heuristic"
)

// Resolver maps provider customer ids to internal users.
type Resolver struct {
	users    UserStore
	log      *slog.Logger
	now      func() time.Time
	fallback bool
	window   time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOrphanFallback enables linking an unknown customer to the most
// recently active unlinked user seen within window. The match is an
// approximation and is logged at WARN.
func WithOrphanFallback(enabled bool, window time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.fallback = enabled
		if window > 0 {
			r.window = window
		}
	}
}

func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(users UserStore, opts ...ResolverOption) *Resolver {
	if users == nil {
		panic("subscription: UserStore is required")
	}
	r := &Resolver{
		users:  users,
		log:    logger.Discard(),
		now:    time.Now,
		window: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the user behind a provider customer. Lookup order: the
// stored customer link, the internal user id echoed by checkout metadata,
// then the optional orphan fallback. A nil user with a nil error means no
// match; callers acknowledge the event without a business effect.
func (r *Resolver) Resolve(ctx context.Context, provider ProviderName, customerID, userRef string) (*User, Resolution, error) {
	if customerID == "" && userRef == "" {
		return nil, ResolvedNone, nil
	}

	if customerID != "" {
		u, err := r.users.GetByCustomerID(ctx, provider, customerID)
		switch {
		case err == nil:
			return u, ResolvedDirect, nil
		case !errors.Is(err, ErrUserNotFound):
			return nil, ResolvedNone, fmt.Errorf("lookup customer %s: %w", customerID, err)
		}
	}

	if userRef != "" {
		u, err := r.byReference(ctx, provider, customerID, userRef)
		if err != nil || u != nil {
			return u, ResolvedReference, err
		}
	}

	if customerID == "" || !r.fallback {
		return nil, ResolvedNone, nil
	}
	return r.byHeuristic(ctx, provider, customerID)
}

func (r *Resolver) byReference(ctx context.Context, provider ProviderName, customerID, userID string) (*User, error) {
	u, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		r.log.WarnContext(ctx, "checkout reference points to unknown user",
			logger.Provider(provider.String()), logger.UserID(userID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}

	if customerID == "" {
		return u, nil
	}
	if linked, ok := u.CustomerID(provider); ok {
		if linked != customerID {
			r.log.WarnContext(ctx, "user already linked to another customer",
				logger.Provider(provider.String()), logger.UserID(u.ID), logger.CustomerID(customerID))
		}
		return u, nil
	}

	err = r.users.LinkCustomer(ctx, u.ID, provider, customerID)
	if err != nil && !errors.Is(err, ErrCustomerAlreadyLinked) {
		return nil, fmt.Errorf("link customer %s: %w", customerID, err)
	}
	if err == nil {
		if u.CustomerIDs == nil {
			u.CustomerIDs = map[ProviderName]string{}
		}
		u.CustomerIDs[provider] = customerID
		r.log.InfoContext(ctx, "customer linked from checkout reference",
			logger.Provider(provider.String()), logger.UserID(u.ID), logger.CustomerID(customerID))
	}
	return u, nil
}

func (r *Resolver) byHeuristic(ctx context.Context, provider ProviderName, customerID string) (*User, Resolution, error) {
	since := r.now().Add(-r.window)

	// Two attempts: a concurrent delivery may link the candidate first.
	for range 2 {
		u, err := r.users.FindLatestUnlinked(ctx, provider, since)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ResolvedNone, nil
		}
		if err != nil {
			return nil, ResolvedNone, fmt.Errorf("find unlinked user: %w", err)
		}

		err = r.users.LinkCustomer(ctx, u.ID, provider, customerID)
		if errors.Is(err, ErrCustomerAlreadyLinked) {
			// The customer itself may have been linked by the concurrent delivery.
			if linked, lerr := r.users.GetByCustomerID(ctx, provider, customerID); lerr == nil {
				return linked, ResolvedDirect, nil
			}
			continue
		}
		if err != nil {
			return nil, ResolvedNone, fmt.Errorf("link customer %s: %w", customerID, err)
		}

		if u.CustomerIDs == nil {
			u.CustomerIDs = map[ProviderName]string{}
		}
		u.CustomerIDs[provider] = customerID
		r.log.WarnContext(ctx, "customer linked to most recently active user",
			logger.Provider(provider.String()), logger.UserID(u.ID), logger.CustomerID(customerID))
		return u, ResolvedHeuristic, nil
	}
	return nil, ResolvedNone, nil
}
