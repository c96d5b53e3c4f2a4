package access

import (
	"context"
	"net/http"

	"github.com/roulettehub/subgate/pkg/logger"
)

type decisionCtxKey struct{}

// WithDecision attaches a decision to ctx.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionCtxKey{}, d)
}

// DecisionFromContext returns the decision attached by Require or Optional.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionCtxKey{}).(Decision)
	return d, ok
}

// Require rejects requests that may not use resource. An empty resource
// only requires an authenticated caller with an active subscription.
func (g *Gate) Require(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r, resource, Options{Required: true})
			if !d.Allowed {
				g.log.DebugContext(r.Context(), "access denied",
					logger.UserID(d.UserID), "resource", resource, "reason", string(d.Reason))
				g.onDenied(w, r, d)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), d)))
		})
	}
}

// Optional always calls next with the decision attached.
func (g *Gate) Optional(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r, resource, Options{Required: false})
			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), d)))
		})
	}
}

// Authenticated rejects requests without a valid session token and
// attaches the decision otherwise. Subscription state is not checked.
func (g *Gate) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r, "", Options{Required: false})
			if !d.Authenticated || d.Reason == ReasonSubscriptionUnavailable {
				g.onDenied(w, r, d)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), d)))
		})
	}
}
