package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roulettehub/subgate/pkg/webhook"
)

// AsaasTokenHeader carries the access token configured for the Asaas
// webhook endpoint.
const AsaasTokenHeader = "asaas-access-token"

const asaasTimeLayout = "2006-01-02 15:04:05"

// AsaasProvider authenticates Asaas webhooks with the shared access token.
//
// Checkout sets externalReference to the internal user id and description
// to a plan id or catalog alias.
type AsaasProvider struct {
	token        string
	maxBodyBytes int64
}

func NewAsaasProvider(token string, maxBodyBytes int64) (*AsaasProvider, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: asaas", ErrMissingWebhookSecret)
	}
	return &AsaasProvider{token: token, maxBodyBytes: maxBodyBytes}, nil
}

func (p *AsaasProvider) Name() ProviderName { return ProviderAsaas }

type asaasEnvelope struct {
	ID           string             `json:"id"`
	Event        string             `json:"event"`
	DateCreated  string             `json:"dateCreated"`
	Payment      *asaasPayment      `json:"payment"`
	Subscription *asaasSubscription `json:"subscription"`
}

type asaasPayment struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	Status            string `json:"status"`
	Description       string `json:"description"`
	ExternalReference string `json:"externalReference"`
}

type asaasSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	Cycle             string `json:"cycle"`
	Description       string `json:"description"`
	ExternalReference string `json:"externalReference"`
}

func (p *AsaasProvider) Parse(w http.ResponseWriter, r *http.Request) (*Event, error) {
	if err := webhook.VerifyToken(p.token, r.Header.Get(AsaasTokenHeader)); err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	payload, err := readPayload(w, r, p.maxBodyBytes)
	if err != nil {
		return nil, err
	}

	var env asaasEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Event == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedEvent)
	}

	ev := &Event{
		ID:         env.ID,
		Provider:   ProviderAsaas,
		Type:       env.Event,
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	}
	if t, err := time.Parse(asaasTimeLayout, env.DateCreated); err == nil {
		ev.OccurredAt = t.UTC()
	}

	// A subscription object wins over the payment that references it.
	if s := env.Subscription; s != nil {
		ev.SubscriptionID = s.ID
		ev.CustomerID = s.Customer
		ev.Status = s.Status
		ev.PlanRef = strings.TrimSpace(s.Description)
		ev.UserRef = s.ExternalReference
	}
	if pay := env.Payment; pay != nil {
		ev.SubscriptionID = firstNonEmpty(ev.SubscriptionID, pay.Subscription)
		ev.CustomerID = firstNonEmpty(ev.CustomerID, pay.Customer)
		ev.PlanRef = firstNonEmpty(ev.PlanRef, strings.TrimSpace(pay.Description))
		ev.UserRef = firstNonEmpty(ev.UserRef, pay.ExternalReference)
	}
	return ev, nil
}

func (p *AsaasProvider) Classify(ev *Event) EventClass {
	switch ev.Type {
	case "SUBSCRIPTION_CREATED", "PAYMENT_CREATED":
		return ClassCreated
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		return ClassPaymentReceived
	case "SUBSCRIPTION_RENEWED":
		return ClassRenewed
	case "PAYMENT_OVERDUE":
		return ClassOverdue
	case "SUBSCRIPTION_DELETED", "PAYMENT_REFUNDED", "PAYMENT_CHARGEBACK_REQUESTED", "PAYMENT_CHARGEBACK_DISPUTE":
		return ClassCanceled
	case "SUBSCRIPTION_INACTIVATED", "SUBSCRIPTION_EXPIRED":
		return ClassExpired
	case "SUBSCRIPTION_UPDATED":
		if ev.Status == "INACTIVE" || ev.Status == "EXPIRED" {
			return ClassExpired
		}
	}
	return ClassIgnored
}
