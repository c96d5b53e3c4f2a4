package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeSignatureHeader carries the Stripe webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// StripeUserIDMetadataKey is the metadata key checkout sessions and
// subscriptions use to echo the internal user id.
const StripeUserIDMetadataKey = "user_id"

// StripeProvider verifies Stripe webhooks with the endpoint signing secret.
type StripeProvider struct {
	secret       string
	maxBodyBytes int64
	tolerance    time.Duration
}

func NewStripeProvider(secret string, maxBodyBytes int64) (*StripeProvider, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: stripe", ErrMissingWebhookSecret)
	}
	return &StripeProvider{
		secret:       secret,
		maxBodyBytes: maxBodyBytes,
		tolerance:    webhook.DefaultTolerance,
	}, nil
}

func (p *StripeProvider) Name() ProviderName { return ProviderStripe }

// stripeObject is the subset of subscription, invoice, charge and checkout
// session objects the engine reads.
type stripeObject struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Status            string            `json:"status"`
	BillingReason     string            `json:"billing_reason"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Lines struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			Pricing struct {
				PriceDetails struct {
					Price string `json:"price"`
				} `json:"price_details"`
			} `json:"pricing"`
			Proration bool `json:"proration"`
			Parent    struct {
				SubscriptionItemDetails struct {
					Proration bool `json:"proration"`
				} `json:"subscription_item_details"`
				InvoiceItemDetails struct {
					Proration bool `json:"proration"`
				} `json:"invoice_item_details"`
			} `json:"parent"`
		} `json:"data"`
	} `json:"lines"`
	Parent struct {
		SubscriptionDetails struct {
			Subscription string            `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (o *stripeObject) priceID() string {
	if len(o.Items.Data) > 0 && o.Items.Data[0].Price.ID != "" {
		return o.Items.Data[0].Price.ID
	}
	// Proration lines credit the old price and charge the new one; the
	// plan the invoice pays for is on the last regular line.
	fallback := ""
	for i := len(o.Lines.Data) - 1; i >= 0; i-- {
		l := o.Lines.Data[i]
		price := firstNonEmpty(l.Price.ID, l.Pricing.PriceDetails.Price)
		if price == "" {
			continue
		}
		if !l.Proration && !l.Parent.SubscriptionItemDetails.Proration && !l.Parent.InvoiceItemDetails.Proration {
			return price
		}
		if fallback == "" {
			fallback = price
		}
	}
	return fallback
}

func (p *StripeProvider) Parse(w http.ResponseWriter, r *http.Request) (*Event, error) {
	payload, err := readPayload(w, r, p.maxBodyBytes)
	if err != nil {
		return nil, err
	}

	sig := r.Header.Get(StripeSignatureHeader)
	if strings.TrimSpace(sig) == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrWebhookVerificationFailed, StripeSignatureHeader)
	}

	se, err := webhook.ConstructEventWithOptions(payload, sig, p.secret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isStripeSignatureError(err) {
			return nil, errors.Join(ErrWebhookVerificationFailed, err)
		}
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if se.ID == "" || se.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedEvent)
	}

	ev := &Event{
		ID:         se.ID,
		Provider:   ProviderStripe,
		Type:       string(se.Type),
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	}
	if se.Created > 0 {
		ev.OccurredAt = time.Unix(se.Created, 0).UTC()
	}

	if se.Data != nil && len(se.Data.Raw) > 0 {
		var obj stripeObject
		if err := json.Unmarshal(se.Data.Raw, &obj); err != nil {
			return nil, errors.Join(ErrMalformedEvent, fmt.Errorf("decode %s object: %w", se.Type, err))
		}
		fillStripeEvent(ev, &obj)
	}
	return ev, nil
}

func fillStripeEvent(ev *Event, obj *stripeObject) {
	ev.CustomerID = obj.Customer
	ev.Status = obj.Status
	ev.BillingReason = obj.BillingReason
	ev.PlanRef = obj.priceID()

	switch obj.Object {
	case "subscription":
		ev.SubscriptionID = obj.ID
	default:
		ev.SubscriptionID = firstNonEmpty(obj.Subscription, obj.Parent.SubscriptionDetails.Subscription)
	}

	ev.UserRef = firstNonEmpty(
		obj.Metadata[StripeUserIDMetadataKey],
		obj.Parent.SubscriptionDetails.Metadata[StripeUserIDMetadataKey],
		obj.ClientReferenceID,
	)
}

// Classify maps Stripe event types. Subscription updates are classified by
// the subscription's status; active updates carry no lifecycle meaning
// because payments drive activation.
func (p *StripeProvider) Classify(ev *Event) EventClass {
	switch ev.Type {
	case "customer.subscription.created":
		return ClassCreated
	case "customer.subscription.resumed":
		return ClassRenewed
	case "customer.subscription.updated":
		switch ev.Status {
		case "past_due", "unpaid":
			return ClassOverdue
		case "canceled":
			return ClassCanceled
		case "incomplete_expired":
			return ClassExpired
		}
		return ClassIgnored
	case "customer.subscription.deleted":
		return ClassCanceled
	case "invoice.paid", "invoice.payment_succeeded":
		if ev.BillingReason == "subscription_cycle" {
			return ClassRenewed
		}
		return ClassPaymentReceived
	case "invoice.payment_failed":
		return ClassOverdue
	case "charge.refunded":
		return ClassCanceled
	}
	return ClassIgnored
}

func isStripeSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
