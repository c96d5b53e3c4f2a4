package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/subscription"
)

type Service struct {
	dispatcher *subscription.Dispatcher
	providers  []subscription.Provider
	log        *slog.Logger
}

func NewService(d *subscription.Dispatcher, log *slog.Logger, providers ...subscription.Provider) *Service {
	if d == nil {
		panic("billing: dispatcher is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{dispatcher: d, providers: providers, log: log}
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	for _, p := range s.providers {
		if p == nil {
			continue
		}
		r.Method(http.MethodPost, "/"+p.Name().String(), subscription.WebhookHandler(s.dispatcher, p, s.log))
	}
	return r
}
