// Package account serves the caller facing subscription API: the public
// plan catalog, the caller's current subscription, its entitlements and
// per resource access checks. Protected routes are guarded by an
// access.Gate.
package account
