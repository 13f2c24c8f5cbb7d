package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MichaelKMarwa/recupio/pkg/logger"
)

type baseLoggerKey struct{}

// RequestLogger stores a request-scoped logger (correlation_id, trace_id,
// span_id) in the context. Mount it after RequestLogging and Tracing.
// Handlers retrieve it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), baseLoggerKey{}, base)
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal records the resolved caller on the context and rebuilds the
// request-scoped logger so later log lines carry it.
func WithPrincipal(ctx context.Context, kind, id string) context.Context {
	ctx = logger.WithPrincipal(ctx, kind, id)
	base, ok := ctx.Value(baseLoggerKey{}).(*slog.Logger)
	if !ok {
		return ctx
	}
	return logger.NewContext(ctx, logger.WithContext(ctx, base))
}
