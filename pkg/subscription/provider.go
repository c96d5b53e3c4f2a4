package subscription

import (
	"errors"
	"net/http"

	"github.com/roulettehub/subgate/pkg/webhook"
)

// Provider turns an inbound webhook request of one payment provider into an
// Event and classifies its events.
type Provider interface {
	Classifier

	Name() ProviderName

	// Parse reads and authenticates the request. Authentication failures
	// wrap ErrWebhookVerificationFailed; a payload without an event id or
	// type wraps ErrMalformedEvent.
	Parse(w http.ResponseWriter, r *http.Request) (*Event, error)
}

func readPayload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := webhook.ReadBody(w, r, limit)
	if err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
