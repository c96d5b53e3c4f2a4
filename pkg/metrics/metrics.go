// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subgate"

var (
	// WebhookEventsTotal counts inbound provider webhooks by how they ended.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Inbound payment provider webhooks by provider and outcome.",
	}, []string{"provider", "outcome"})

	// WebhookDuration tracks dispatcher latency per provider.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// SubscriptionTransitionsTotal counts applied status changes.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "subscription_transitions_total",
		Help:      "Applied subscription status transitions.",
	}, []string{"provider", "from", "to"})

	// CustomerResolutionsTotal counts how webhook customers were matched to users.
	CustomerResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "customer_resolutions_total",
		Help:      "Customer to user resolutions by method.",
	}, []string{"provider", "method"})

	// AccessDecisionsTotal counts access gate decisions by reason.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Access gate decisions by reason and whether the route required access.",
	}, []string{"reason", "required"})
)
