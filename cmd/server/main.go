// Command server runs the subscription webhooks and the access gated API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roulettehub/subgate/pkg/access"
	"github.com/roulettehub/subgate/pkg/config"
	"github.com/roulettehub/subgate/pkg/httpserver"
	"github.com/roulettehub/subgate/pkg/jwt"
	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/requestid"
	"github.com/roulettehub/subgate/pkg/subscription"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	var (
		billingCfg subscription.Config
		accessCfg  access.Config
		httpCfg    httpserver.Config
	)
	if err := config.Load(&billingCfg); err != nil {
		return err
	}
	if err := config.Load(&accessCfg); err != nil {
		return err
	}
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	catalog, err := subscription.LoadCatalog(ctx, subscription.NewYAMLFileSource(cfg.PlansFile))
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		st.close(closeCtx, log)
	}()
	if err != nil {
		return err
	}

	providers, err := newProviders(billingCfg, log)
	if err != nil {
		return err
	}

	resolver := subscription.NewResolver(st.users,
		subscription.WithResolverLogger(log),
		subscription.WithOrphanFallback(billingCfg.OrphanFallback, billingCfg.OrphanWindow),
	)
	dispatcher := subscription.NewDispatcher(st.events, st.subs, resolver, catalog,
		subscription.WithDispatcherLogger(log),
		subscription.WithProcessTimeout(billingCfg.ProcessTimeout),
		subscription.WithSaveAttempts(billingCfg.SaveAttempts),
		subscription.WithDefaultCycle(billingCfg.DefaultCycle),
	)

	var jwtOpts []jwt.Option
	if cfg.JWTIssuer != "" {
		jwtOpts = append(jwtOpts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	tokens, err := jwt.NewFromString(cfg.JWTSigningKey, jwtOpts...)
	if err != nil {
		return err
	}
	gate := access.NewGate(tokens, st.subs, catalog,
		access.WithLogger(log),
		access.WithExpiryGrace(accessCfg.ExpiryGrace),
	)

	router := newRouter(routerDeps{
		log:              log,
		dispatcher:       dispatcher,
		providers:        providers,
		gate:             gate,
		catalog:          catalog,
		checks:           st.checks,
		readinessTimeout: cfg.ReadinessTimeout,
	})

	log.InfoContext(ctx, "starting server",
		slog.String("addr", httpCfg.Addr),
		slog.String("store", cfg.StoreDriver),
		slog.String("ledger", cfg.EventLedger),
		slog.Int("plans", len(catalog.Plans())),
	)
	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	if cfg.LogSource {
		opts = append(opts, logger.WithSource())
	}
	return logger.New(opts...)
}

// newProviders builds the webhook providers that have credentials. A
// provider without a secret is not mounted.
func newProviders(cfg subscription.Config, log *slog.Logger) ([]subscription.Provider, error) {
	var providers []subscription.Provider
	if cfg.StripeWebhookSecret != "" {
		p, err := subscription.NewStripeProvider(cfg.StripeWebhookSecret, cfg.MaxBodyBytes)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.AsaasWebhookToken != "" {
		p, err := subscription.NewAsaasProvider(cfg.AsaasWebhookToken, cfg.MaxBodyBytes)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		log.Warn("no webhook provider configured, subscription state will not change")
	}
	return providers, nil
}
