package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roulettehub/subgate/handler"
	"github.com/roulettehub/subgate/pkg/access"
	"github.com/roulettehub/subgate/pkg/subscription"
)

// Catalog is the slice of the plan catalog the account API reads.
type Catalog interface {
	Plans() []subscription.Plan
	AllowedResources(planID string) []string
	PublicResources() []string
}

// Service serves the caller facing account endpoints.
type Service struct {
	gate         *access.Gate
	catalog      Catalog
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(gate *access.Gate, catalog Catalog, errorHandler handler.ErrorHandler[handler.Context]) *Service {
	if gate == nil {
		panic("account: gate is required")
	}
	if catalog == nil {
		panic("account: catalog is required")
	}
	if errorHandler == nil {
		errorHandler = handler.NewErrorHandler(nil)
	}
	return &Service{gate: gate, catalog: catalog, errorHandler: errorHandler}
}

// Handle mounts:
//
//	GET /me/subscription    authenticated, the caller's current subscription or 404
//	GET /entitlements       resources available to the caller, public ones when anonymous
//	GET /access/{resource}  the gate decision for resource
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.gate.Authenticated()).Get("/me/subscription", handler.Wrap(s.currentSubscription,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.With(s.gate.Optional("")).Get("/entitlements", handler.Wrap(s.entitlements,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Get("/access/{resource}", handler.Wrap(s.checkAccess,
		handler.WithBinders[handler.Context, AccessRequest](
			handler.PathParam("resource", func(req *AccessRequest, v string) { req.Resource = v }),
		),
		handler.WithErrorHandler[handler.Context, AccessRequest](s.errorHandler),
	))

	return r
}

// Plans returns the public catalog endpoint as a Mountable.
func (s *Service) Plans() Mountable {
	return plansEndpoint{s}
}

type plansEndpoint struct{ s *Service }

func (p plansEndpoint) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", handler.Wrap(p.s.plans,
		handler.WithErrorHandler[handler.Context, struct{}](p.s.errorHandler),
	))
	return r
}

// PlansResponse lists the catalog.
type PlansResponse struct {
	Plans           []subscription.Plan `json:"plans"`
	PublicResources []string            `json:"public_resources"`
}

func (s *Service) plans(_ handler.Context, _ struct{}) handler.Response {
	return handler.JSON(PlansResponse{
		Plans:           s.catalog.Plans(),
		PublicResources: nonNil(s.catalog.PublicResources()),
	})
}

// SubscriptionResponse is the caller's current subscription.
type SubscriptionResponse struct {
	Provider       string     `json:"provider"`
	SubscriptionID string     `json:"subscription_id"`
	PlanID         string     `json:"plan_id"`
	Status         string     `json:"status"`
	Active         bool       `json:"active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (s *Service) currentSubscription(ctx handler.Context, _ struct{}) handler.Response {
	d, ok := access.DecisionFromContext(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	if d.Subscription == nil {
		return handler.JSONError(handler.ErrNotFound)
	}
	sub := d.Subscription
	return handler.JSON(SubscriptionResponse{
		Provider:       sub.Provider.String(),
		SubscriptionID: sub.ProviderSubscriptionID,
		PlanID:         sub.PlanID,
		Status:         string(sub.Status),
		Active:         d.Subscribed,
		ExpiresAt:      sub.ExpiresAt,
		UpdatedAt:      sub.UpdatedAt,
	})
}

// EntitlementsResponse lists what the caller may use. Degraded is set when
// the caller only gets the public resources.
type EntitlementsResponse struct {
	PlanID    string   `json:"plan_id,omitempty"`
	Resources []string `json:"resources"`
	Degraded  bool     `json:"degraded"`
	Reason    string   `json:"reason,omitempty"`
}

func (s *Service) entitlements(ctx handler.Context, _ struct{}) handler.Response {
	d, _ := access.DecisionFromContext(ctx)
	if d.Subscribed {
		return handler.JSON(EntitlementsResponse{
			PlanID:    d.CurrentPlan(),
			Resources: nonNil(s.catalog.AllowedResources(d.CurrentPlan())),
		})
	}
	return handler.JSON(EntitlementsResponse{
		Resources: nonNil(s.catalog.PublicResources()),
		Degraded:  true,
		Reason:    string(d.Reason),
	})
}

// AccessRequest names the resource to check.
type AccessRequest struct {
	Resource string
}

// AccessResponse is the gate decision for one resource.
type AccessResponse struct {
	Resource     string   `json:"resource"`
	Allowed      bool     `json:"allowed"`
	State        string   `json:"state"`
	Reason       string   `json:"reason,omitempty"`
	CurrentPlan  string   `json:"currentPlan,omitempty"`
	AllowedPlans []string `json:"allowedPlans,omitempty"`
}

func (s *Service) checkAccess(ctx handler.Context, req AccessRequest) handler.Response {
	d := s.gate.Evaluate(ctx.Request(), req.Resource, access.Options{Required: false})
	return handler.JSON(AccessResponse{
		Resource:     req.Resource,
		Allowed:      d.Allowed,
		State:        string(d.State),
		Reason:       string(d.Reason),
		CurrentPlan:  d.CurrentPlan(),
		AllowedPlans: d.AllowedPlans,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
