package dispatcher

import "log/slog"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the dispatcher.
// If not set, log records are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMiddleware wraps every callback registered after construction.
// Middleware is applied in the order provided: the first one is the innermost.
//
// Example:
//
//	d := dispatcher.New(
//	    dispatcher.WithMiddleware(dispatcher.LoggingMiddleware(logger)),
//	)
func WithMiddleware(middleware ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, middleware...)
	}
}

// WithPanicRecovery controls whether a panicking callback is converted into a
// *HandlerError. Enabled by default. When disabled the panic propagates to the
// Dispatch caller; the dispatcher is still unlocked.
func WithPanicRecovery(enabled bool) Option {
	return func(d *Dispatcher) {
		d.recoverPanics = enabled
	}
}
