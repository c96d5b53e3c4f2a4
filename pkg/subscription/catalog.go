package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// Definition is the raw content of a plan catalog source.
type Definition struct {
	Plans []Plan `yaml:"plans"`
	// PublicResources are served to callers without an active subscription
	// on routes that degrade instead of rejecting.
	PublicResources []string `yaml:"public_resources"`
}

// PlansSource loads the catalog definition. It is consulted once at start.
type PlansSource interface {
	Load(ctx context.Context) (Definition, error)
}

// Catalog is the immutable plan catalog. All methods are safe for
// concurrent use.
type Catalog struct {
	plans     map[string]Plan
	aliases   map[string]string
	resources map[string]map[string]struct{}
	ordered   []Plan
	public    []string
}

// LoadCatalog reads src and builds a validated Catalog.
func LoadCatalog(ctx context.Context, src PlansSource) (*Catalog, error) {
	if src == nil {
		panic("subscription: PlansSource is required")
	}
	def, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return NewCatalog(def)
}

// NewCatalog validates def and builds a Catalog from it.
func NewCatalog(def Definition) (*Catalog, error) {
	if len(def.Plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog has no plans"))
	}

	c := &Catalog{
		plans:     make(map[string]Plan, len(def.Plans)),
		aliases:   make(map[string]string),
		resources: make(map[string]map[string]struct{}, len(def.Plans)),
		public:    slices.Clone(def.PublicResources),
	}

	for _, p := range def.Plans {
		if err := validatePlan(p); err != nil {
			return nil, err
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan id %q", p.ID))
		}
		p = p.clone()
		c.plans[p.ID] = p

		set := make(map[string]struct{}, len(p.Resources))
		for _, r := range p.Resources {
			set[r] = struct{}{}
		}
		c.resources[p.ID] = set
	}

	for _, p := range c.plans {
		for _, a := range p.Aliases {
			if owner, taken := c.aliases[a]; taken && owner != p.ID {
				return nil, errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("alias %q used by plans %q and %q", a, owner, p.ID))
			}
			if _, isID := c.plans[a]; isID && a != p.ID {
				return nil, errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("alias %q of plan %q collides with a plan id", a, p.ID))
			}
			c.aliases[a] = p.ID
		}
	}

	c.ordered = make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		c.ordered = append(c.ordered, p)
	}
	slices.SortFunc(c.ordered, comparePlans)

	return c, nil
}

func validatePlan(p Plan) error {
	switch {
	case p.ID == "":
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan id is empty"))
	case p.TierRank < 0:
		return errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %q has negative tier %d", p.ID, p.TierRank))
	case p.Interval != "" && !p.Interval.valid():
		return errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %q has unknown interval %q", p.ID, p.Interval))
	}
	return nil
}

func comparePlans(a, b Plan) int {
	return cmp.Or(cmp.Compare(a.TierRank, b.TierRank), cmp.Compare(a.ID, b.ID))
}

// Plan returns the plan with the given id.
func (c *Catalog) Plan(id string) (Plan, bool) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, false
	}
	return p.clone(), true
}

// Resolve maps a plan id or a provider price alias to a plan.
func (c *Catalog) Resolve(ref string) (Plan, bool) {
	if ref == "" {
		return Plan{}, false
	}
	if p, ok := c.Plan(ref); ok {
		return p, true
	}
	if id, ok := c.aliases[ref]; ok {
		return c.Plan(id)
	}
	return Plan{}, false
}

// AllowedResources returns the sorted resources unlocked by planID.
// Unknown plans unlock nothing.
func (c *Catalog) AllowedResources(planID string) []string {
	set := c.resources[planID]
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Allows reports whether planID unlocks resource.
func (c *Catalog) Allows(planID, resource string) bool {
	_, ok := c.resources[planID][resource]
	return ok
}

// TierRank returns the plan's rank; unknown plans rank 0.
func (c *Catalog) TierRank(planID string) int {
	return c.plans[planID].TierRank
}

// PlansAllowing lists the ids of plans that unlock resource, lowest tier first.
func (c *Catalog) PlansAllowing(resource string) []string {
	var out []string
	for _, p := range c.ordered {
		if _, ok := c.resources[p.ID][resource]; ok {
			out = append(out, p.ID)
		}
	}
	return out
}

// Plans returns all plans ordered by tier.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.ordered))
	for i, p := range c.ordered {
		out[i] = p.clone()
	}
	return out
}

// PublicResources returns the resources available without a subscription.
func (c *Catalog) PublicResources() []string {
	return slices.Clone(c.public)
}
