package subscription

import (
	"maps"
	"time"
)

// User is the slice of the application's user record the billing engine
// needs: identity, provider customer links and last activity.
type User struct {
	ID           string
	Email        string
	CustomerIDs  map[ProviderName]string
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// CustomerID returns the user's customer id at provider, if linked.
func (u *User) CustomerID(p ProviderName) (string, bool) {
	id, ok := u.CustomerIDs[p]
	return id, ok && id != ""
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.CustomerIDs = maps.Clone(u.CustomerIDs)
	return &c
}
