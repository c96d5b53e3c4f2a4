// Package subscription is the subscription lifecycle engine.
//
// Payment providers (Stripe, Asaas) deliver webhooks. A Provider verifies
// and normalises each delivery into an Event; the Dispatcher records it in
// the idempotency ledger (EventStore), resolves the provider customer to an
// internal User (Resolver) and applies the status transition (Transition) to
// the user's Subscription. The Catalog describes plans, their tier rank and
// the resources each plan unlocks; the access package reads it together with
// SubscriptionStore to gate API requests.
//
// Status lifecycle:
//
//	(none) --created--> PENDING --payment/renewed--> ACTIVE <--payment-- OVERDUE
//	ACTIVE --overdue--> OVERDUE
//	PENDING|ACTIVE|OVERDUE --canceled/refunded/chargeback--> CANCELED (terminal)
//	PENDING|ACTIVE|OVERDUE --expired--> EXPIRED (terminal)
//
// A creation event arriving after ACTIVE or OVERDUE is stale and never moves
// the subscription back to PENDING.
//
// Storage is behind EventStore, UserStore and SubscriptionStore. MemoryStore
// implements all three for tests and local runs; svc/mongostore,
// svc/pgstore and svc/redisstore provide the production backends.
package subscription
