package subscription_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/pkg/subscription"
)

func serveWebhook(t *testing.T, h http.Handler, r *http.Request) (int, subscription.WebhookResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	var body subscription.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	created := `{"id":"evt_1","event":"SUBSCRIPTION_CREATED","subscription":{"id":"sub_1","customer":"cus_1","description":"basic"}}`

	t.Run("processes and deduplicates", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.PutUser(linkedUser())
		handler := subscription.WebhookHandler(h.dispatcher, h.asaas, nil)

		code, body := serveWebhook(t, handler, asaasRequest(created, "asaas-token"))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, subscription.WebhookResponse{Received: true, Processed: true}, body)

		code, body = serveWebhook(t, handler, asaasRequest(created, "asaas-token"))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, subscription.WebhookResponse{Received: true, Reason: subscription.ReasonAlreadyProcessed}, body)
	})

	t.Run("ignored event", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		handler := subscription.WebhookHandler(h.dispatcher, h.asaas, nil)

		code, body := serveWebhook(t, handler, asaasRequest(`{"id":"evt_9","event":"PAYMENT_UPDATED"}`, "asaas-token"))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, subscription.ReasonIgnoredEventType, body.Reason)
		assert.False(t, body.Processed)
	})

	t.Run("rejects bad token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		handler := subscription.WebhookHandler(h.dispatcher, h.asaas, nil)

		code, body := serveWebhook(t, handler, asaasRequest(created, "wrong"))
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, body.Received)

		done, err := h.store.HasProcessed(context.Background(), subscription.ProviderAsaas, "evt_1")
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("rejects malformed envelope", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		handler := subscription.WebhookHandler(h.dispatcher, h.asaas, nil)

		code, body := serveWebhook(t, handler, asaasRequest(`not json`, "asaas-token"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, body.Error)
	})

	t.Run("datastore unavailable", func(t *testing.T) {
		t.Parallel()
		fs := &faultyStore{MemoryStore: subscription.NewMemoryStore(), hasProcessed: func() error {
			return fmt.Errorf("%w: no reachable servers", subscription.ErrStoreUnavailable)
		}}
		asaas, err := subscription.NewAsaasProvider("asaas-token", 0)
		require.NoError(t, err)
		handler := subscription.WebhookHandler(newFaultyDispatcher(t, fs), asaas, nil)

		code, _ := serveWebhook(t, handler, asaasRequest(created, "asaas-token"))
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
