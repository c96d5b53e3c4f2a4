// Package pg manages the PostgreSQL (Supabase) connection pool: retrying
// connect, readiness check, goose migrations from an embedded filesystem and
// classification of pgx errors.
package pg
