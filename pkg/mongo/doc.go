// Package mongo manages the MongoDB client: environment driven configuration,
// a connect loop that retries until the server answers a ping, a readiness
// check and helpers that classify driver errors for the stores in svc/mongostore.
package mongo
