package subscription

import (
	"context"
	"sync"
	"time"
)

type eventKey struct {
	provider ProviderName
	id       string
}

type customerKey struct {
	provider ProviderName
	id       string
}

type subKey struct {
	provider ProviderName
	id       string
}

// MemoryStore keeps events, users and subscriptions in process memory. It
// implements EventStore, UserStore and SubscriptionStore with the same
// uniqueness and versioning rules as the database backends.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[eventKey]ProcessedEvent
	users  map[string]*User
	links  map[customerKey]string // -> user id
	subs   map[subKey]*Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[eventKey]ProcessedEvent),
		users:  make(map[string]*User),
		links:  make(map[customerKey]string),
		subs:   make(map[subKey]*Subscription),
	}
}

// PutUser inserts or replaces a user, including its customer links.
func (s *MemoryStore) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.users[u.ID]; ok {
		for p, cid := range old.CustomerIDs {
			delete(s.links, customerKey{p, cid})
		}
	}
	c := u.Clone()
	s.users[u.ID] = c
	for p, cid := range c.CustomerIDs {
		if cid != "" {
			s.links[customerKey{p, cid}] = c.ID
		}
	}
}

func (s *MemoryStore) HasProcessed(_ context.Context, provider ProviderName, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventKey{provider, eventID}]
	return ok, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, rec ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := eventKey{rec.Provider, rec.EventID}
	if _, ok := s.events[k]; ok {
		return ErrDuplicateEvent
	}
	s.events[k] = rec
	return nil
}

func (s *MemoryStore) Release(_ context.Context, provider ProviderName, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventKey{provider, eventID})
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetByCustomerID(_ context.Context, provider ProviderName, customerID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.links[customerKey{provider, customerID}]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryStore) FindLatestUnlinked(_ context.Context, provider ProviderName, since time.Time) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *User
	for _, u := range s.users {
		if _, linked := u.CustomerID(provider); linked || u.LastActiveAt.Before(since) {
			continue
		}
		if best == nil || u.LastActiveAt.After(best.LastActiveAt) {
			best = u
		}
	}
	if best == nil {
		return nil, ErrUserNotFound
	}
	return best.Clone(), nil
}

func (s *MemoryStore) LinkCustomer(_ context.Context, userID string, provider ProviderName, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if owner, taken := s.links[customerKey{provider, customerID}]; taken {
		if owner == userID {
			return nil
		}
		return ErrCustomerAlreadyLinked
	}
	if _, linked := u.CustomerID(provider); linked {
		return ErrCustomerAlreadyLinked
	}

	if u.CustomerIDs == nil {
		u.CustomerIDs = make(map[ProviderName]string)
	}
	u.CustomerIDs[provider] = customerID
	s.links[customerKey{provider, customerID}] = userID
	return nil
}

func (s *MemoryStore) GetByProviderID(_ context.Context, provider ProviderName, providerSubscriptionID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[subKey{provider, providerSubscriptionID}]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) GetCurrent(_ context.Context, userID string, provider ProviderName) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID || (provider != "" && sub.Provider != provider) {
			continue
		}
		if best == nil || sub.UpdatedAt.After(best.UpdatedAt) {
			best = sub
		}
	}
	if best == nil {
		return nil, ErrSubscriptionNotFound
	}
	return best.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := subKey{sub.Provider, sub.ProviderSubscriptionID}
	stored, exists := s.subs[k]
	switch {
	case sub.Version == 0 && exists:
		return ErrConcurrentUpdate
	case sub.Version != 0 && (!exists || stored.Version != sub.Version):
		return ErrConcurrentUpdate
	}

	sub.Version++
	s.subs[k] = sub.Clone()
	return nil
}
