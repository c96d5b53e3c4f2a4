// Package requestid tags every request with an id, echoes it in the
// X-Request-ID response header and exposes it to the logger.
//
// An incoming X-Request-ID is kept when it is short and made of
// [A-Za-z0-9_-]; anything else is replaced with a fresh UUID so a caller
// cannot inject arbitrary text into logs.
package requestid
