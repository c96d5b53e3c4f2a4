package subscription

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/webhook"
)

// WebhookResponse is the JSON body returned to providers.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WebhookHandler returns the HTTP endpoint for one provider.
//
// Status codes: 400 for a malformed envelope, 401 for failed authentication,
// 503 when the datastore is unreachable and 200 for everything else so
// providers stop retrying events that cannot succeed.
func WebhookHandler(d *Dispatcher, p Provider, log *slog.Logger) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("webhook"), logger.Provider(p.Name().String()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev, err := p.Parse(w, r)
		if err != nil {
			status, msg := http.StatusBadRequest, "malformed event"
			if errors.Is(err, ErrWebhookVerificationFailed) {
				status, msg = http.StatusUnauthorized, "verification failed"
			}
			log.WarnContext(r.Context(), "webhook rejected", logger.Error(err))
			webhook.WriteJSON(w, status, WebhookResponse{Error: msg})
			return
		}

		res, err := d.Dispatch(r.Context(), ev, p)
		if err != nil {
			webhook.WriteJSON(w, http.StatusServiceUnavailable, WebhookResponse{Error: "datastore unavailable"})
			return
		}

		webhook.WriteJSON(w, http.StatusOK, WebhookResponse{
			Received:  true,
			Processed: res.Processed,
			Reason:    res.Reason,
		})
	})
}
