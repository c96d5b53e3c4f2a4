package subscription_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/subscription"
)

// faultyStore wraps a MemoryStore and lets tests replace single operations.
type faultyStore struct {
	*subscription.MemoryStore

	hasProcessed    func() error
	getByProviderID func(ctx context.Context) error
	save            func(attempt int) error
	release         func() error

	mu    sync.Mutex
	saves int
}

func (s *faultyStore) HasProcessed(ctx context.Context, p subscription.ProviderName, id string) (bool, error) {
	if s.hasProcessed != nil {
		if err := s.hasProcessed(); err != nil {
			return false, err
		}
	}
	return s.MemoryStore.HasProcessed(ctx, p, id)
}

func (s *faultyStore) GetByProviderID(ctx context.Context, p subscription.ProviderName, id string) (*subscription.Subscription, error) {
	if s.getByProviderID != nil {
		if err := s.getByProviderID(ctx); err != nil {
			return nil, err
		}
	}
	return s.MemoryStore.GetByProviderID(ctx, p, id)
}

func (s *faultyStore) Save(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	s.saves++
	attempt := s.saves
	s.mu.Unlock()
	if s.save != nil {
		if err := s.save(attempt); err != nil {
			return err
		}
	}
	return s.MemoryStore.Save(ctx, sub)
}

func (s *faultyStore) Release(ctx context.Context, p subscription.ProviderName, id string) error {
	if s.release != nil {
		if err := s.release(); err != nil {
			return err
		}
	}
	return s.MemoryStore.Release(ctx, p, id)
}

func newFaultyDispatcher(t *testing.T, fs *faultyStore, opts ...subscription.DispatcherOption) *subscription.Dispatcher {
	t.Helper()
	resolver := subscription.NewResolver(fs, subscription.WithResolverClock(fixedClock))
	opts = append([]subscription.DispatcherOption{subscription.WithDispatcherClock(fixedClock)}, opts...)
	return subscription.NewDispatcher(fs, fs, resolver, newTestCatalog(t), opts...)
}

type classifierFunc func(ev *subscription.Event) subscription.EventClass

func (f classifierFunc) Classify(ev *subscription.Event) subscription.EventClass { return f(ev) }

func linkedUser() subscription.User {
	return subscription.User{
		ID:          "u1",
		CustomerIDs: map[subscription.ProviderName]string{subscription.ProviderAsaas: "cus_1"},
	}
}

func TestDispatchLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.store.PutUser(linkedUser())

	created := asaasEvent("evt_1", "SUBSCRIPTION_CREATED", "sub_1", "cus_1")
	created.PlanRef = "Plano Basic"

	res, err := h.dispatcher.Dispatch(ctx, created, h.asaas)
	require.NoError(t, err)
	assert.Equal(t, subscription.Result{Processed: true}, res)

	sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, sub.Status)
	assert.Equal(t, "basic", sub.PlanID)
	assert.Equal(t, "u1", sub.UserID)

	t.Run("duplicate delivery", func(t *testing.T) {
		res, err := h.dispatcher.Dispatch(ctx, created, h.asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Reason: subscription.ReasonAlreadyProcessed}, res)

		again, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, sub.Version, again.Version)
	})

	t.Run("payment activates", func(t *testing.T) {
		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_2", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.True(t, res.Processed)

		sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		require.NotNil(t, sub.ExpiresAt)
		assert.Equal(t, testNow.AddDate(0, 1, 0), *sub.ExpiresAt)
	})

	t.Run("late creation is stale", func(t *testing.T) {
		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_3", "PAYMENT_CREATED", "sub_1", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Processed: true, Reason: string(subscription.OutcomeStale)}, res)

		sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("cancellation is final", func(t *testing.T) {
		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_4", "SUBSCRIPTION_DELETED", "sub_1", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.True(t, res.Processed)

		res, err = h.dispatcher.Dispatch(ctx, asaasEvent("evt_5", "PAYMENT_RECEIVED", "sub_1", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.Equal(t, string(subscription.OutcomeTerminal), res.Reason)

		sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, sub.Status)
	})
}

func TestDispatchNoBusinessEffect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ignored event type is not recorded", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ev := asaasEvent("evt_1", "PAYMENT_UPDATED", "sub_1", "cus_1")

		res, err := h.dispatcher.Dispatch(ctx, ev, h.asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Reason: subscription.ReasonIgnoredEventType}, res)

		done, err := h.store.HasProcessed(ctx, subscription.ProviderAsaas, "evt_1")
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("unknown customer", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_unknown"), h.asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Processed: true, Reason: string(subscription.OutcomeCustomerNotFound)}, res)

		_, err = h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("overdue without subscription", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.PutUser(linkedUser())

		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_OVERDUE", "sub_1", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.Equal(t, string(subscription.OutcomeNotFound), res.Reason)
	})

	t.Run("checkout reference creates link", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.PutUser(subscription.User{ID: "u7"})

		ev := asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_7", "cus_7")
		ev.UserRef = "u7"
		ev.PlanRef = "vip"
		res, err := h.dispatcher.Dispatch(ctx, ev, h.asaas)
		require.NoError(t, err)
		assert.True(t, res.Processed)

		sub, err := h.store.GetCurrent(ctx, "u7", "")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, testNow.AddDate(1, 0, 0), *sub.ExpiresAt)
	})

	t.Run("event without subscription id uses current", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.PutUser(linkedUser())
		require.NoError(t, h.store.Save(ctx, &subscription.Subscription{
			UserID: "u1", Provider: subscription.ProviderAsaas, ProviderSubscriptionID: "sub_1",
			PlanID: "pro", Status: subscription.StatusActive, UpdatedAt: testNow,
		}))

		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_REFUNDED", "", "cus_1"), h.asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Processed: true}, res)

		sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, sub.Status)
	})
}

func TestDispatchFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	unavailable := fmt.Errorf("%w: connection refused", subscription.ErrStoreUnavailable)

	t.Run("unavailable ledger asks for retry", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), hasProcessed: func() error { return unavailable }}
		d := newFaultyDispatcher(t, fs)

		_, err := d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), classifierFunc(func(*subscription.Event) subscription.EventClass {
			return subscription.ClassPaymentReceived
		}))
		assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)
	})

	t.Run("unavailable after mark releases the ledger", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), getByProviderID: func(context.Context) error { return unavailable }}
		fs.PutUser(linkedUser())
		d := newFaultyDispatcher(t, fs)
		asaas, err := subscription.NewAsaasProvider("t", 0)
		require.NoError(t, err)

		_, err = d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)

		done, err := fs.MemoryStore.HasProcessed(ctx, subscription.ProviderAsaas, "evt_1")
		require.NoError(t, err)
		assert.False(t, done, "redelivery must be processed")

		fs.getByProviderID = nil
		res, err := d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		require.NoError(t, err)
		assert.True(t, res.Processed)
	})

	t.Run("failed release logs the event for replay", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{
			MemoryStore:     subscription.NewMemoryStore(),
			getByProviderID: func(context.Context) error { return unavailable },
			release:         func() error { return unavailable },
		}
		fs.PutUser(linkedUser())
		buf := &bytes.Buffer{}
		d := newFaultyDispatcher(t, fs, subscription.WithDispatcherLogger(logger.New(logger.WithOutput(buf))))
		asaas, err := subscription.NewAsaasProvider("t", 0)
		require.NoError(t, err)

		_, err = d.Dispatch(ctx, asaasEvent("evt_9", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)

		done, err := fs.MemoryStore.HasProcessed(ctx, subscription.ProviderAsaas, "evt_9")
		require.NoError(t, err)
		assert.True(t, done)

		var record map[string]any
		for line := range strings.Lines(buf.String()) {
			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
			if entry["msg"] == "failed to release webhook event, replay required" {
				record = entry
			}
		}
		require.NotNil(t, record, "release failure must be logged")
		assert.Equal(t, "ERROR", record["level"])
		assert.Equal(t, "evt_9", record["replay_event_id"])
		assert.Equal(t, "asaas", record["provider"])
		assert.Equal(t, "sub_1", record["subscription_id"])
	})

	t.Run("timeout is acknowledged", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), getByProviderID: func(ctx context.Context) error {
			<-ctx.Done()
			return fmt.Errorf("%w: %w", subscription.ErrStoreUnavailable, ctx.Err())
		}}
		fs.PutUser(linkedUser())
		d := newFaultyDispatcher(t, fs, subscription.WithProcessTimeout(20*time.Millisecond))
		asaas, err := subscription.NewAsaasProvider("t", 0)
		require.NoError(t, err)

		res, err := d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Reason: subscription.ReasonInternalError}, res)
	})

	t.Run("panic is acknowledged", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_1", "X", "sub_1", "cus_1"), classifierFunc(func(*subscription.Event) subscription.EventClass {
			panic("boom")
		}))
		require.NoError(t, err)
		assert.Equal(t, subscription.Result{Reason: subscription.ReasonInternalError}, res)
	})

	t.Run("concurrent update is retried", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), save: func(attempt int) error {
			if attempt == 1 {
				return subscription.ErrConcurrentUpdate
			}
			return nil
		}}
		fs.PutUser(linkedUser())
		d := newFaultyDispatcher(t, fs)
		asaas, err := subscription.NewAsaasProvider("t", 0)
		require.NoError(t, err)

		res, err := d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		require.NoError(t, err)
		assert.True(t, res.Processed)
		assert.Equal(t, 2, fs.saves)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), save: func(int) error { return subscription.ErrConcurrentUpdate }}
		fs.PutUser(linkedUser())
		d := newFaultyDispatcher(t, fs, subscription.WithSaveAttempts(2))
		asaas, err := subscription.NewAsaasProvider("t", 0)
		require.NoError(t, err)

		res, err := d.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), asaas)
		require.NoError(t, err)
		assert.Equal(t, subscription.ReasonInternalError, res.Reason)
		assert.Equal(t, 2, fs.saves)
	})
}

func TestDispatchConcurrentDeliveries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.store.PutUser(linkedUser())

	const n = 8
	results := make([]subscription.Result, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.dispatcher.Dispatch(ctx, asaasEvent("evt_1", "PAYMENT_CONFIRMED", "sub_1", "cus_1"), h.asaas)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	processed := 0
	for _, res := range results {
		if res.Processed {
			processed++
		} else {
			assert.Equal(t, subscription.ReasonAlreadyProcessed, res.Reason)
		}
	}
	assert.Equal(t, 1, processed)

	sub, err := h.store.GetByProviderID(ctx, subscription.ProviderAsaas, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.Version)
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	t.Parallel()
	s := subscription.NewMemoryStore()
	r := subscription.NewResolver(s)
	c := newTestCatalog(t)

	assert.Panics(t, func() { subscription.NewDispatcher(nil, s, r, c) })
	assert.Panics(t, func() { subscription.NewDispatcher(s, nil, r, c) })
	assert.Panics(t, func() { subscription.NewDispatcher(s, s, nil, c) })
	assert.Panics(t, func() { subscription.NewDispatcher(s, s, r, nil) })
}
