package subscription

import (
	"encoding/json"
	"time"
)

// Event is a verified webhook delivery normalised across providers.
type Event struct {
	ID         string
	Provider   ProviderName
	Type       string // provider event name, e.g. "invoice.paid"
	OccurredAt time.Time
	ReceivedAt time.Time

	SubscriptionID string
	CustomerID     string
	PlanRef        string // plan id or provider price id
	UserRef        string // internal user id echoed back from checkout metadata
	Status         string // provider status of the subscription object, when present
	BillingReason  string

	Payload json.RawMessage
}

// ProcessedEvent is the idempotency ledger record of an event. It is
// written once and never modified.
type ProcessedEvent struct {
	Provider    ProviderName
	EventID     string
	EventType   string
	Payload     json.RawMessage
	ProcessedAt time.Time
}

// Record builds the ledger record for e.
func (e *Event) Record(now time.Time) ProcessedEvent {
	return ProcessedEvent{
		Provider:    e.Provider,
		EventID:     e.ID,
		EventType:   e.Type,
		Payload:     e.Payload,
		ProcessedAt: now,
	}
}
