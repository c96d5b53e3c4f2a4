package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/roulettehub/subgate/pkg/jwt"
	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/metrics"
	"github.com/roulettehub/subgate/pkg/subscription"
)

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// SubscriptionReader reads the caller's current subscription. It must hit
// the backing store on every call.
type SubscriptionReader interface {
	GetCurrent(ctx context.Context, userID string, provider subscription.ProviderName) (*subscription.Subscription, error)
}

// PlanCatalog answers which plans unlock which resources.
type PlanCatalog interface {
	Allows(planID, resource string) bool
	PlansAllowing(resource string) []string
	TierRank(planID string) int
}

// TokenExtractor reads the raw token from a request.
type TokenExtractor func(r *http.Request) (string, error)

// Options tune a single evaluation.
type Options struct {
	// Required rejects the request on any denial. When false the request
	// continues with reduced access and the decision attached.
	Required bool
}

// Gate evaluates access to protected resources.
type Gate struct {
	tokens    TokenVerifier
	subs      SubscriptionReader
	plans     PlanCatalog
	providers []subscription.ProviderName
	extract   TokenExtractor
	log       *slog.Logger
	now       func() time.Time
	grace     time.Duration
	onDenied  func(w http.ResponseWriter, r *http.Request, d Decision)
}

// Option configures a Gate.
type Option func(*Gate)

// WithExpiryGrace treats ACTIVE subscriptions whose ExpiresAt lies more
// than grace in the past as lapsed. Zero disables the check.
func WithExpiryGrace(grace time.Duration) Option {
	return func(g *Gate) { g.grace = grace }
}

// WithProviders limits the providers whose subscriptions are consulted.
func WithProviders(providers ...subscription.ProviderName) Option {
	return func(g *Gate) {
		if len(providers) > 0 {
			g.providers = providers
		}
	}
}

func WithTokenExtractor(fn TokenExtractor) Option {
	return func(g *Gate) {
		if fn != nil {
			g.extract = fn
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithDeniedHandler replaces the JSON rejection written by Require.
func WithDeniedHandler(fn func(w http.ResponseWriter, r *http.Request, d Decision)) Option {
	return func(g *Gate) {
		if fn != nil {
			g.onDenied = fn
		}
	}
}

// NewGate builds a gate. It panics on missing collaborators since the
// gate is wired once at startup.
func NewGate(tokens TokenVerifier, subs SubscriptionReader, plans PlanCatalog, opts ...Option) *Gate {
	switch {
	case tokens == nil:
		panic(ErrNilTokenVerifier)
	case subs == nil:
		panic(ErrNilSubscriptionReader)
	case plans == nil:
		panic(ErrNilPlanCatalog)
	}

	g := &Gate{
		tokens:    tokens,
		subs:      subs,
		plans:     plans,
		providers: subscription.Providers(),
		extract:   jwt.BearerTokenExtractor,
		log:       logger.Discard(),
		now:       time.Now,
		grace:     72 * time.Hour,
		onDenied:  WriteDenied,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides whether the request may use resource. It only reads.
func (g *Gate) Evaluate(r *http.Request, resource string, opts Options) Decision {
	d := g.evaluate(r, resource)
	metrics.AccessDecisionsTotal.WithLabelValues(decisionLabel(d), strconv.FormatBool(opts.Required)).Inc()
	return d
}

func (g *Gate) evaluate(r *http.Request, resource string) Decision {
	ctx := r.Context()
	d := Decision{Resource: resource, State: StateUnauthenticated}

	token, err := g.extract(r)
	if err != nil {
		d.Reason = ReasonAuthRequired
		if !errors.Is(err, jwt.ErrMissingToken) {
			d.Reason = ReasonInvalidToken
		}
		return d
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		g.log.DebugContext(ctx, "rejected session token", logger.Error(err))
		d.Reason = ReasonInvalidToken
		return d
	}
	d.Authenticated = true
	d.UserID = claims.UserID()
	d.Email = claims.Email

	subs, err := g.currentSubscriptions(ctx, d.UserID)
	if err != nil {
		g.log.ErrorContext(ctx, "subscription lookup failed, denying access",
			logger.UserID(d.UserID), logger.Error(err))
		d.State = StateDenied
		d.Reason = ReasonSubscriptionUnavailable
		return d
	}

	now := g.now()
	var active, granting *subscription.Subscription
	for _, sub := range subs {
		if !sub.ActiveAt(now, g.grace) {
			continue
		}
		if g.higherTier(sub, active) {
			active = sub
		}
		if resource != "" && g.plans.Allows(sub.PlanID, resource) && g.higherTier(sub, granting) {
			granting = sub
		}
	}

	if active == nil {
		d.Subscription = latest(subs)
		d.State = StateUnsubscribed
		d.Reason = ReasonSubscriptionRequired
		d.AllowedPlans = g.plans.PlansAllowing(resource)
		return d
	}
	d.Subscribed = true
	d.Subscription = active

	if resource != "" && granting == nil {
		d.State = StateDenied
		d.Reason = ReasonPlanUpgradeRequired
		d.AllowedPlans = g.plans.PlansAllowing(resource)
		return d
	}
	if granting != nil {
		d.Subscription = granting
	}

	d.State = StateAllowed
	d.Allowed = true
	return d
}

// currentSubscriptions reads the current subscription at every provider.
// A user may hold one per provider and any of them can grant access.
func (g *Gate) currentSubscriptions(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	subs := make([]*subscription.Subscription, 0, len(g.providers))
	for _, p := range g.providers {
		sub, err := g.subs.GetCurrent(ctx, userID, p)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s subscription: %w", p, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (g *Gate) higherTier(sub, than *subscription.Subscription) bool {
	if than == nil {
		return true
	}
	if a, b := g.plans.TierRank(sub.PlanID), g.plans.TierRank(than.PlanID); a != b {
		return a > b
	}
	return sub.UpdatedAt.After(than.UpdatedAt)
}

func latest(subs []*subscription.Subscription) *subscription.Subscription {
	var last *subscription.Subscription
	for _, sub := range subs {
		if last == nil || sub.UpdatedAt.After(last.UpdatedAt) {
			last = sub
		}
	}
	return last
}

func decisionLabel(d Decision) string {
	if d.Allowed {
		return "ALLOWED"
	}
	return string(d.Reason)
}
