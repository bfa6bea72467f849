package store

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flux/core/action"
)

// Handler handles one payload. value is the phase-appropriate argument:
// the action args for a begin payload, the error for a failure payload and
// the body otherwise.
type Handler func(ctx context.Context, value any, p action.Payload) error

// Predicate selects payloads for RegisterMatch.
type Predicate func(p action.Payload) bool

// Typed adapts a handler that expects a concrete value type.
// A nil value is passed as the zero T; any other mismatch returns ErrUnexpectedValue.
//
// Example:
//
//	s.Register(addTodo, store.Typed(func(ctx context.Context, todo Todo) error {
//	    s.Update(func(prev State) State {
//	        prev.Todos = append(slices.Clone(prev.Todos), todo)
//	        return prev
//	    })
//	    return nil
//	}))
func Typed[T any](fn func(ctx context.Context, value T) error) Handler {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, value any, _ action.Payload) error {
		if value == nil {
			var zero T
			return fn(ctx, zero)
		}
		v, ok := value.(T)
		if !ok {
			var zero T
			return fmt.Errorf("%w: got %T, want %T", ErrUnexpectedValue, value, zero)
		}
		return fn(ctx, v)
	}
}

// Binding declares action handlers up front, as an alternative to calling the
// Register methods after construction.
// When Begin or Failure is set the binding is registered as async with
// Handler as the success handler.
type Binding struct {
	Action  action.Ref
	Handler Handler
	Begin   Handler
	Failure Handler
}
