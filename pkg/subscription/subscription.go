package subscription

import "time"

// Subscription is a user's subscription at one provider, keyed by
// (Provider, ProviderSubscriptionID).
type Subscription struct {
	UserID                 string
	Provider               ProviderName
	ProviderSubscriptionID string
	PlanID                 string
	Status                 Status
	LastEventType          string
	LastEventAt            time.Time
	ExpiresAt              *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Version is the optimistic concurrency token. Zero means the row has
	// not been stored yet.
	Version int64
}

func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// ActiveAt reports whether the subscription grants access at now. An ACTIVE
// subscription whose ExpiresAt lies more than grace in the past is treated
// as lapsed; a non-positive grace disables the expiry check.
func (s *Subscription) ActiveAt(now time.Time, grace time.Duration) bool {
	if !s.IsActive() {
		return false
	}
	if grace <= 0 || s.ExpiresAt == nil {
		return true
	}
	return now.Before(s.ExpiresAt.Add(grace))
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
