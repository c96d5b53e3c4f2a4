// Package httpserver runs the API with graceful shutdown and provides the
// liveness and readiness handlers used by orchestrators.
//
// Run blocks until its context is cancelled (cmd/server derives it from
// SIGINT/SIGTERM) and then drains in-flight requests for at most
// Config.ShutdownTimeout. Readiness runs named checks, typically datastore
// pings, each bounded by a timeout.
package httpserver
