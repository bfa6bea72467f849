package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/logger"
)

// Middleware wraps a Callback to add behaviour around it.
type Middleware func(Callback) Callback

// chainMiddleware applies middleware left-to-right (first middleware wraps innermost).
func chainMiddleware(cb Callback, middleware []Middleware) Callback {
	for _, mw := range middleware {
		cb = mw(cb)
	}
	return cb
}

// LoggingMiddleware logs every callback invocation with its token and timing.
//
// Example:
//
//	d := dispatcher.New(
//	    dispatcher.WithMiddleware(dispatcher.LoggingMiddleware(log)),
//	)
func LoggingMiddleware(log *slog.Logger) Middleware {
	return func(next Callback) Callback {
		return func(ctx context.Context, p action.Payload) error {
			start := time.Now()
			token, _ := TokenFromContext(ctx)

			err := next(ctx, p)
			if err != nil {
				log.ErrorContext(ctx, "callback failed",
					logger.Token(token.String()),
					logger.ActionType(p.ActionType),
					logger.Phase(string(p.Async)),
					logger.Elapsed(start),
					logger.Error(err))
				return err
			}

			log.DebugContext(ctx, "callback completed",
				logger.Token(token.String()),
				logger.ActionType(p.ActionType),
				logger.Phase(string(p.Async)),
				logger.Elapsed(start))
			return nil
		}
	}
}

type tokenKey struct{}

func withToken(ctx context.Context, token Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token of the callback currently being invoked.
func TokenFromContext(ctx context.Context) (Token, bool) {
	token, ok := ctx.Value(tokenKey{}).(Token)
	return token, ok
}
