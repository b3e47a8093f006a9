package log

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger stores a request-scoped logger in the context. The HTTP
// middleware uses it to carry the request id into handler logs.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx retrieves the logger from the context, falling back to the global
// logger. WebSocket-originated work usually hits the fallback: those events
// carry no per-request context.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithSession returns a context whose logger is stamped with the session id,
// so every log entry downstream of one lifecycle operation links back to the
// same chat.
func WithSession(ctx context.Context, sessionID string) context.Context {
	l := Ctx(ctx).With().Str(FieldSessionID, sessionID).Logger()
	return WithLogger(ctx, l)
}
