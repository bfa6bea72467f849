package store

import "log/slog"

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithMerge sets the function SetState uses to combine states.
// Defaults to ShallowMerge.
//
// Example:
//
//	transcript := store.New("", store.WithMerge[string](store.Concat))
func WithMerge[S any](fn MergeFunc[S]) Option[S] {
	return func(s *Store[S]) {
		if fn != nil {
			s.merge = fn
		}
	}
}

// WithLogger sets the logger for the store.
// If not set, log records are discarded.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBindings registers action handlers at construction.
func WithBindings[S any](bindings ...Binding) Option[S] {
	return func(s *Store[S]) {
		s.RegisterBindings(bindings...)
	}
}

// WithSerializer overrides how MarshalState and UnmarshalState encode the state.
func WithSerializer[S any](marshal func(S) ([]byte, error), unmarshal func([]byte) (S, error)) Option[S] {
	return func(s *Store[S]) {
		if marshal != nil {
			s.marshal = marshal
		}
		if unmarshal != nil {
			s.unmarshal = unmarshal
		}
	}
}
