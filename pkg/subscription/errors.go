package subscription

import "errors"

var (
	ErrPlanNotFound             = errors.New("subscription plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load subscription plans")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUserNotFound         = errors.New("user not found")

	// ErrDuplicateEvent is returned by EventStore.MarkProcessed when the
	// (provider, event id) pair was already recorded.
	ErrDuplicateEvent = errors.New("webhook event already processed")
	// ErrConcurrentUpdate is returned by SubscriptionStore.Save when the
	// stored version no longer matches the one the caller read.
	ErrConcurrentUpdate = errors.New("subscription was modified concurrently")
	// ErrCustomerAlreadyLinked is returned by UserStore.LinkCustomer when the
	// user or the customer id is already linked elsewhere.
	ErrCustomerAlreadyLinked = errors.New("provider customer already linked")
	// ErrStoreUnavailable marks datastore errors caused by the backend being
	// unreachable. Stores join it with the driver error.
	ErrStoreUnavailable = errors.New("subscription datastore unavailable")

	ErrMalformedEvent            = errors.New("malformed webhook event")
	ErrWebhookVerificationFailed = errors.New("webhook verification failed")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrUnknownProvider           = errors.New("unknown billing provider")
)
