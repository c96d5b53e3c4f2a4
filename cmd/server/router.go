package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roulettehub/subgate/handler"
	"github.com/roulettehub/subgate/modules/account"
	"github.com/roulettehub/subgate/modules/billing"
	"github.com/roulettehub/subgate/pkg/access"
	"github.com/roulettehub/subgate/pkg/httpserver"
	"github.com/roulettehub/subgate/pkg/requestid"
	"github.com/roulettehub/subgate/pkg/subscription"
)

type routerDeps struct {
	log              *slog.Logger
	dispatcher       *subscription.Dispatcher
	providers        []subscription.Provider
	gate             *access.Gate
	catalog          *subscription.Catalog
	checks           []httpserver.Check
	readinessTimeout time.Duration
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(d.log, d.readinessTimeout, d.checks...))
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/webhooks", billing.NewService(d.dispatcher, d.log, d.providers...).Handle())

	svc := account.NewService(d.gate, d.catalog, handler.NewErrorHandler(d.log))
	r.Mount("/api/v1", account.Router(account.RouterOptions{
		Plans:  svc.Plans(),
		Access: svc,
	}))

	return r
}
