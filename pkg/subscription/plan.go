package subscription

import (
	"slices"
	"time"
)

// Plan describes a paid tier. Aliases hold provider price ids (Stripe
// price_..., Asaas product references) that webhooks carry instead of the
// internal plan id.
type Plan struct {
	ID        string          `yaml:"id" json:"id"`
	Name      string          `yaml:"name" json:"name"`
	TierRank  int             `yaml:"tier" json:"tier"`
	Interval  BillingInterval `yaml:"interval" json:"interval"`
	Resources []string        `yaml:"resources" json:"resources"`
	Aliases   []string        `yaml:"aliases" json:"-"`
}

// Allows reports whether the plan unlocks resource.
func (p Plan) Allows(resource string) bool {
	return slices.Contains(p.Resources, resource)
}

// NextBillingDate returns the end of one billing cycle starting at from.
func (p Plan) NextBillingDate(from time.Time) time.Time {
	return p.Interval.AddTo(from)
}

// AddTo advances t by one cycle. Unknown intervals count as monthly.
func (i BillingInterval) AddTo(t time.Time) time.Time {
	switch i {
	case BillingIntervalWeekly:
		return t.AddDate(0, 0, 7)
	case BillingIntervalAnnual:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func (p Plan) clone() Plan {
	p.Resources = slices.Clone(p.Resources)
	p.Aliases = slices.Clone(p.Aliases)
	return p
}
