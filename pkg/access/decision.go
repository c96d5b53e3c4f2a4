package access

import (
	"net/http"

	"github.com/roulettehub/subgate/pkg/subscription"
)

// Reason is the machine readable code of a denial.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonAuthRequired            Reason = "AUTH_REQUIRED"
	ReasonInvalidToken            Reason = "INVALID_TOKEN"
	ReasonSubscriptionRequired    Reason = "SUBSCRIPTION_REQUIRED"
	ReasonPlanUpgradeRequired     Reason = "PLAN_UPGRADE_REQUIRED"
	ReasonSubscriptionUnavailable Reason = "SUBSCRIPTION_UNAVAILABLE"
)

// State is the last state an evaluation reached.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateUnsubscribed    State = "UNSUBSCRIBED"
	StateAllowed         State = "ALLOWED"
	StateDenied          State = "DENIED"
)

// Decision is the request scoped result of an evaluation. It is never
// persisted.
type Decision struct {
	Authenticated bool
	UserID        string
	Email         string
	// Subscription is the caller's current subscription in any status.
	Subscription *subscription.Subscription
	// Subscribed is true when Subscription grants access at evaluation time.
	Subscribed bool
	Resource   string
	Allowed    bool
	Reason     Reason
	State      State

	// AllowedPlans lists the plans that unlock Resource, lowest tier
	// first. Set on PLAN_UPGRADE_REQUIRED and SUBSCRIPTION_REQUIRED.
	AllowedPlans []string
}

// CurrentPlan returns the plan of the caller's subscription, if any.
func (d Decision) CurrentPlan() string {
	if d.Subscription == nil {
		return ""
	}
	return d.Subscription.PlanID
}

// Status maps the decision to the HTTP status of a rejection. Allowed
// decisions map to 200.
func (d Decision) Status() int {
	switch d.Reason {
	case ReasonAuthRequired, ReasonInvalidToken:
		return http.StatusUnauthorized
	case ReasonSubscriptionRequired, ReasonPlanUpgradeRequired:
		return http.StatusForbidden
	case ReasonSubscriptionUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
