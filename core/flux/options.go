package flux

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/flux/core/dispatcher"
	"github.com/dmitrymomot/flux/core/logger"
)

// Option configures a Flux instance.
type Option func(*Flux)

// WithName sets the instance name used by Registry.
func WithName(name string) Option {
	return func(f *Flux) {
		if name != "" {
			f.name = name
		}
	}
}

// WithLogger sets the logger shared by the container and its dispatcher.
// If not set, log records are discarded.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flux) {
		if log != nil {
			f.logger = log
		}
	}
}

// WithConfig applies a Config: name, a logger built from the log settings,
// panic recovery and per-callback logging.
// Options applied after it override the corresponding fields.
//
// Example:
//
//	cfg, err := flux.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	f := flux.New(flux.WithConfig(cfg))
func WithConfig(cfg Config) Option {
	return func(f *Flux) {
		if cfg.Name != "" {
			f.name = cfg.Name
		}
		f.logger = logger.New(
			logger.WithLevelString(cfg.LogLevel),
			logger.WithFormat(cfg.LogFormat),
			logger.WithAttr(logger.Component("flux")),
		)
		f.recoverPanics = cfg.RecoverPanics
		f.logCallbacks = cfg.LogCallbacks
	}
}

// WithDispatcherOptions passes options through to the underlying dispatcher.
// They are applied after the container's own logger and recovery settings.
func WithDispatcherOptions(opts ...dispatcher.Option) Option {
	return func(f *Flux) {
		f.dispatcherOpts = append(f.dispatcherOpts, opts...)
	}
}

// WithTracerProvider traces every store callback with an OpenTelemetry span.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Flux) {
		f.tracerProvider = tp
	}
}
