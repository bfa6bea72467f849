package dispatcher

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/flux/core/action"
)

const tracerName = "github.com/dmitrymomot/flux/core/dispatcher"

// TracingMiddleware opens a span around every callback invocation.
// Spans nest, so a WaitFor shows up as child spans of the waiting callback.
//
// Example:
//
//	d := dispatcher.New(
//	    dispatcher.WithMiddleware(dispatcher.TracingMiddleware(otel.GetTracerProvider())),
//	)
func TracingMiddleware(tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(tracerName)

	return func(next Callback) Callback {
		return func(ctx context.Context, p action.Payload) error {
			token, _ := TokenFromContext(ctx)

			attrs := []attribute.KeyValue{
				attribute.String("flux.action_type", p.ActionType),
				attribute.String("flux.token", token.String()),
			}
			if p.Async != action.PhaseNone {
				attrs = append(attrs, attribute.String("flux.phase", string(p.Async)))
			}
			if p.DispatchID != "" {
				attrs = append(attrs, attribute.String("flux.dispatch_id", p.DispatchID))
			}

			ctx, span := tracer.Start(ctx, "flux.callback", trace.WithAttributes(attrs...))
			defer span.End()

			err := next(ctx, p)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
