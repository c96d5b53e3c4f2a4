// Package mongostore implements the subscription datastores on MongoDB.
//
// Three collections are used:
//
//   - processed_events: the webhook idempotency ledger, _id "<provider>:<event id>"
//   - users: application users with their provider customer links
//   - subscriptions: one document per provider subscription, _id
//     "<provider>:<subscription id>", written with a version check
//
// Uniqueness is enforced by the server through _id and unique partial
// indexes, so concurrent deliveries of the same event or concurrent links of
// the same customer are serialised by MongoDB itself. Call EnsureIndexes once
// at startup.
package mongostore
