package subscription

import (
	"errors"
	"time"

	"github.com/roulettehub/subgate/pkg/statemachine"
)

// Outcome describes what handling an event did to the subscription.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeStale            Outcome = "stale_event"
	OutcomeTerminal         Outcome = "terminal_state"
	OutcomeNotFound         Outcome = "subscription_not_found"
	OutcomeCustomerNotFound Outcome = "customer_not_found"
)

// lifecycle is the status table. StatusNone is the state of a subscription
// that has no row yet: creation and payment events may create one, other
// events need an existing row.
var lifecycle = statemachine.NewBuilder[Status, EventClass]().
	From(StatusNone, StatusPending).On(ClassCreated).To(StatusPending).
	From(StatusNone, StatusPending, StatusActive, StatusOverdue).On(ClassPaymentReceived, ClassRenewed).To(StatusActive).
	From(StatusPending, StatusActive, StatusOverdue).On(ClassOverdue).To(StatusOverdue).
	From(StatusPending, StatusActive, StatusOverdue).On(ClassCanceled).To(StatusCanceled).
	From(StatusPending, StatusActive, StatusOverdue).On(ClassExpired).To(StatusExpired).
	Terminal(StatusCanceled, StatusExpired).
	MustBuild()

// TransitionEnv carries the inputs of Transition that do not come from the
// event itself.
type TransitionEnv struct {
	Now    time.Time
	UserID string
	// PlanID is the resolved internal plan of the event, empty if unknown.
	PlanID string
	// Interval is the billing cycle of PlanID. When empty DefaultCycle is
	// used, and a zero DefaultCycle means one calendar month.
	Interval     BillingInterval
	DefaultCycle time.Duration
}

func (env TransitionEnv) nextExpiry() time.Time {
	if env.Interval == "" && env.DefaultCycle > 0 {
		return env.Now.Add(env.DefaultCycle)
	}
	return env.Interval.AddTo(env.Now)
}

// Transition computes the subscription that results from applying an event
// of class to current (nil when no row exists). It is pure: current is not
// modified. A nil result means there is nothing to write.
//
// Stale creation events only back-fill an empty PlanID; they never move the
// status back to PENDING. Terminal subscriptions are never changed.
func Transition(current *Subscription, ev *Event, class EventClass, env TransitionEnv) (*Subscription, Outcome) {
	from := StatusNone
	if current != nil {
		from = current.Status
	}

	to, err := lifecycle.Next(from, class)
	if err != nil {
		switch {
		case errors.Is(err, statemachine.ErrTerminalState):
			return nil, OutcomeTerminal
		case current == nil:
			return nil, OutcomeNotFound
		case class == ClassCreated && current.PlanID == "" && env.PlanID != "":
			next := current.Clone()
			next.PlanID = env.PlanID
			next.UpdatedAt = env.Now
			return next, OutcomeStale
		default:
			return nil, OutcomeStale
		}
	}

	var next *Subscription
	if current == nil {
		if ev.SubscriptionID == "" || env.UserID == "" {
			return nil, OutcomeNotFound
		}
		next = &Subscription{
			UserID:                 env.UserID,
			Provider:               ev.Provider,
			ProviderSubscriptionID: ev.SubscriptionID,
			CreatedAt:              env.Now,
		}
	} else {
		next = current.Clone()
	}

	switch class {
	case ClassCreated:
		if env.PlanID != "" {
			next.PlanID = env.PlanID
		}
	case ClassPaymentReceived, ClassRenewed:
		if env.PlanID != "" {
			next.PlanID = env.PlanID
		}
		expires := env.nextExpiry()
		next.ExpiresAt = &expires
	case ClassCanceled:
		now := env.Now
		next.ExpiresAt = &now
	}

	next.Status = to
	next.LastEventType = ev.Type
	next.LastEventAt = ev.OccurredAt
	if next.LastEventAt.IsZero() {
		next.LastEventAt = env.Now
	}
	next.UpdatedAt = env.Now

	return next, OutcomeApplied
}
