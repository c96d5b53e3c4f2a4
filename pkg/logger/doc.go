// Package logger builds the service's *slog.Logger.
//
// New takes functional options for format, level, output, static attributes
// and context extractors. Extractors run on every record through
// LogHandlerDecorator, which is how request ids set by the requestid
// middleware end up on log lines written deep inside the webhook dispatcher.
//
// attr.go holds constructors for the attribute keys used across the
// repository (provider, event_id, subscription_id, ...) so that log queries
// stay stable.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "subgate"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "webhook processed",
//	    logger.Provider("stripe"),
//	    logger.EventID(ev.ID),
//	)
package logger
