package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/handler"
	"github.com/roulettehub/subgate/modules/account"
	"github.com/roulettehub/subgate/pkg/access"
	"github.com/roulettehub/subgate/pkg/jwt"
	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/subscription"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fixture struct {
	tokens *jwt.Service
	store  *subscription.MemoryStore
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := jwt.NewFromString("account-test-key", jwt.WithClock(clock))
	require.NoError(t, err)

	catalog, err := subscription.NewCatalog(subscription.Definition{
		Plans: []subscription.Plan{
			{ID: "basic", Name: "Basic", TierRank: 1, Interval: subscription.BillingIntervalMonthly, Resources: []string{"roulette.history"}},
			{ID: "pro", Name: "Pro", TierRank: 2, Interval: subscription.BillingIntervalMonthly, Resources: []string{"roulette.history", "roulette.live"}},
		},
		PublicResources: []string{"roulette.recent"},
	})
	require.NoError(t, err)

	store := subscription.NewMemoryStore()
	gate := access.NewGate(tokens, store, catalog, access.WithClock(clock))
	svc := account.NewService(gate, catalog, handler.NewErrorHandler(logger.Discard()))

	return &fixture{
		tokens: tokens,
		store:  store,
		router: account.Router(account.RouterOptions{Plans: svc.Plans(), Access: svc}),
	}
}

func (f *fixture) subscribe(t *testing.T, userID, planID string, status subscription.Status) {
	t.Helper()
	expires := testNow.AddDate(0, 1, 0)
	require.NoError(t, f.store.Save(context.Background(), &subscription.Subscription{
		UserID:                 userID,
		Provider:               subscription.ProviderStripe,
		ProviderSubscriptionID: "sub_" + userID,
		PlanID:                 planID,
		Status:                 status,
		ExpiresAt:              &expires,
		UpdatedAt:              testNow,
	}))
}

func (f *fixture) get(t *testing.T, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		token, err := f.tokens.Issue(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data  T                    `json:"data"`
		Error *handler.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestPlans(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.get(t, "/plans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[account.PlansResponse](t, rec)
	require.Len(t, body.Plans, 2)
	assert.Equal(t, "basic", body.Plans[0].ID)
	assert.Equal(t, []string{"roulette.recent"}, body.PublicResources)
}

func TestCurrentSubscription(t *testing.T) {
	t.Parallel()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.get(t, "/me/subscription", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"code":"AUTH_REQUIRED"}`, rec.Body.String())
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.get(t, "/me/subscription", "u1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("overdue subscription is returned but inactive", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(t, "u1", "pro", subscription.StatusOverdue)

		rec := f.get(t, "/me/subscription", "u1")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[account.SubscriptionResponse](t, rec)
		assert.Equal(t, "pro", body.PlanID)
		assert.Equal(t, "OVERDUE", body.Status)
		assert.False(t, body.Active)
		assert.Equal(t, "stripe", body.Provider)
	})
}

func TestEntitlements(t *testing.T) {
	t.Parallel()

	t.Run("subscribed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(t, "u1", "pro", subscription.StatusActive)

		body := decode[account.EntitlementsResponse](t, f.get(t, "/entitlements", "u1"))
		assert.Equal(t, "pro", body.PlanID)
		assert.ElementsMatch(t, []string{"roulette.history", "roulette.live"}, body.Resources)
		assert.False(t, body.Degraded)
	})

	t.Run("anonymous gets public resources", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.get(t, "/entitlements", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[account.EntitlementsResponse](t, rec)
		assert.True(t, body.Degraded)
		assert.Equal(t, []string{"roulette.recent"}, body.Resources)
		assert.Equal(t, "AUTH_REQUIRED", body.Reason)
	})

	t.Run("canceled gets public resources", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(t, "u1", "pro", subscription.StatusCanceled)

		body := decode[account.EntitlementsResponse](t, f.get(t, "/entitlements", "u1"))
		assert.True(t, body.Degraded)
		assert.Equal(t, "SUBSCRIPTION_REQUIRED", body.Reason)
	})
}

func TestCheckAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.subscribe(t, "u1", "basic", subscription.StatusActive)

	rec := f.get(t, "/access/roulette.history", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[account.AccessResponse](t, rec)
	assert.True(t, body.Allowed)
	assert.Equal(t, "ALLOWED", body.State)

	body = decode[account.AccessResponse](t, f.get(t, "/access/roulette.live", "u1"))
	assert.False(t, body.Allowed)
	assert.Equal(t, "PLAN_UPGRADE_REQUIRED", body.Reason)
	assert.Equal(t, "basic", body.CurrentPlan)
	assert.Equal(t, []string{"pro"}, body.AllowedPlans)

	body = decode[account.AccessResponse](t, f.get(t, "/access/roulette.live", ""))
	assert.False(t, body.Allowed)
	assert.Equal(t, "UNAUTHENTICATED", body.State)
}
