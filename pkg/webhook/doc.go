// Package webhook holds the HTTP plumbing shared by inbound payment provider
// webhooks: bounded body reading, shared-secret token checks and JSON replies.
package webhook
