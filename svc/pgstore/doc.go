// Package pgstore implements the subscription datastores on PostgreSQL
// (including Supabase) with pgx.
//
// The schema ships as embedded goose migrations; apply them with Migrate
// before serving traffic. Uniqueness of processed events, customer links and
// subscriptions is enforced by primary keys and unique constraints, and
// subscription rows are updated with a version check.
package pgstore
