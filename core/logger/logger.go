package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler used by New.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Option configures New.
type Option func(*options)

type options struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLevelString parses level names ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func WithLevelString(level string) Option {
	return func(o *options) {
		if l, ok := ParseLevel(level); ok {
			o.level = l
		}
	}
}

// WithFormat selects text or JSON output. Unknown formats fall back to text.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = Format(strings.ToLower(format))
	}
}

// WithOutput sets the writer, os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New creates a slog.Logger.
//
// Example:
//
//	log := logger.New(
//		logger.WithLevelString("debug"),
//		logger.WithFormat("json"),
//		logger.WithAttr(logger.Component("flux")),
//	)
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}

	var h slog.Handler
	switch o.format {
	case FormatJSON:
		h = slog.NewJSONHandler(o.output, handlerOpts)
	default:
		h = slog.NewTextHandler(o.output, handlerOpts)
	}

	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}

	return slog.New(h)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
