package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/roulettehub/subgate/pkg/logger"
)

// NewErrorHandler returns an error handler that logs the failure and
// renders it with JSONError. Client errors are logged at WARN, everything
// else at ERROR.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("api"))

	return func(ctx Context, err error) {
		status := http.StatusInternalServerError
		var httpErr HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		_ = JSONError(err).Render(ctx.ResponseWriter(), r)
	}
}
