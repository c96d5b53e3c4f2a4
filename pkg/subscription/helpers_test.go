package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/pkg/subscription"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func createTestPlans() []subscription.Plan {
	return []subscription.Plan{
		{
			ID:        "basic",
			Name:      "Basic",
			TierRank:  1,
			Interval:  subscription.BillingIntervalMonthly,
			Resources: []string{"roulette.history", "roulette.stats"},
			Aliases:   []string{"price_basic_monthly", "Plano Basic"},
		},
		{
			ID:        "pro",
			Name:      "Pro",
			TierRank:  2,
			Interval:  subscription.BillingIntervalMonthly,
			Resources: []string{"roulette.history", "roulette.stats", "roulette.live", "roulette.signals"},
			Aliases:   []string{"price_pro_monthly"},
		},
		{
			ID:        "vip",
			Name:      "VIP",
			TierRank:  3,
			Interval:  subscription.BillingIntervalAnnual,
			Resources: []string{"roulette.history", "roulette.stats", "roulette.live", "roulette.signals", "roulette.export"},
			Aliases:   []string{"price_vip_annual"},
		},
	}
}

func newTestCatalog(t *testing.T) *subscription.Catalog {
	t.Helper()
	c, err := subscription.NewCatalog(subscription.Definition{
		Plans:           createTestPlans(),
		PublicResources: []string{"roulette.recent"},
	})
	require.NoError(t, err)
	return c
}

type harness struct {
	store      *subscription.MemoryStore
	catalog    *subscription.Catalog
	dispatcher *subscription.Dispatcher
	asaas      *subscription.AsaasProvider
}

func newHarness(t *testing.T, opts ...subscription.DispatcherOption) *harness {
	t.Helper()
	store := subscription.NewMemoryStore()
	catalog := newTestCatalog(t)
	resolver := subscription.NewResolver(store, subscription.WithResolverClock(fixedClock))

	asaas, err := subscription.NewAsaasProvider("asaas-token", 0)
	require.NoError(t, err)

	opts = append([]subscription.DispatcherOption{subscription.WithDispatcherClock(fixedClock)}, opts...)
	return &harness{
		store:      store,
		catalog:    catalog,
		dispatcher: subscription.NewDispatcher(store, store, resolver, catalog, opts...),
		asaas:      asaas,
	}
}

func asaasEvent(id, eventType, subID, customerID string) *subscription.Event {
	return &subscription.Event{
		ID:             id,
		Provider:       subscription.ProviderAsaas,
		Type:           eventType,
		SubscriptionID: subID,
		CustomerID:     customerID,
	}
}
