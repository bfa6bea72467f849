package logger

import (
	"log/slog"
	"runtime"
	"strconv"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Error("msg", logger.Error(err)) without explicit nil checks.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Panic creates an attribute for a recovered panic value.
func Panic(v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any("panic", v)
}

// ============================================================================
// Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Dispatch
// ============================================================================

// ActionType creates an attribute for the dispatched action type.
func ActionType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("action_type", t)
}

// Phase creates an attribute for the async phase of a payload.
// Returns empty Attr for synchronous payloads.
func Phase(p string) slog.Attr {
	if p == "" {
		return slog.Attr{}
	}
	return slog.String("phase", p)
}

// Token creates an attribute for a dispatcher registration token.
func Token(token string) slog.Attr {
	if token == "" {
		return slog.Attr{}
	}
	return slog.String("token", token)
}

// DispatchID creates an attribute for the correlation id of an async action.
func DispatchID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("dispatch_id", id)
}

// Store creates an attribute for a store name.
func Store(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("store", name)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// ============================================================================
// Debugging
// ============================================================================

// Stack captures and returns the current stack trace.
func Stack() slog.Attr {
	const size = 64 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	return slog.String("stack", string(buf))
}
