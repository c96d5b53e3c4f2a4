// Package access implements the tiered access gate in front of protected
// API routes.
//
// Every evaluation walks the same per-request states:
//
//	UNAUTHENTICATED -> AUTHENTICATED -> SUBSCRIBED | UNSUBSCRIBED -> ALLOWED | DENIED
//
// The bearer token is verified, the caller's current subscription is read
// from the store on every request (there is no cache, so a cancellation
// takes effect on the next request) and the required resource is checked
// against the plan catalog. Only ACTIVE subscriptions count as subscribed.
//
// Require rejects denied requests with a JSON body carrying one of the
// Reason codes. Optional lets every request through with the Decision
// attached, for endpoints that serve a reduced payload to anonymous or
// unsubscribed callers:
//
//	gate := access.NewGate(tokens, store, catalog, access.WithExpiryGrace(cfg.ExpiryGrace))
//	r.With(gate.Require("roulette.live")).Get("/live", liveHandler)
//	r.With(gate.Optional("roulette.history")).Get("/history", historyHandler)
//
//	func historyHandler(w http.ResponseWriter, r *http.Request) {
//		d, _ := access.DecisionFromContext(r.Context())
//		if !d.Allowed {
//			// serve the sample
//		}
//	}
//
// The gate never writes subscription state.
package access
