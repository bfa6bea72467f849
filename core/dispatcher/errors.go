package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownToken is returned when a token does not map to a registered callback.
	ErrUnknownToken = errors.New("dispatcher: token does not map to a registered callback")

	// ErrAlreadyDispatching is returned by Dispatch while another dispatch is in progress.
	ErrAlreadyDispatching = errors.New("dispatcher: cannot dispatch in the middle of a dispatch")

	// ErrNotDispatching is returned by WaitFor outside a dispatch.
	ErrNotDispatching = errors.New("dispatcher: wait for must be invoked while dispatching")

	// ErrCircularDependency is returned by WaitFor when the wait graph has a cycle.
	ErrCircularDependency = errors.New("dispatcher: circular dependency detected")

	// ErrHandler marks a failure raised by a registered callback.
	ErrHandler = errors.New("dispatcher: callback failed")
)

// CircularDependencyError names the token that closed a wait cycle.
type CircularDependencyError struct {
	Token Token
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s while waiting for %s", ErrCircularDependency, e.Token)
}

// Is reports whether target is ErrCircularDependency.
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// HandlerError wraps an error returned (or a panic raised) by a callback.
type HandlerError struct {
	Token      Token
	ActionType string
	Err        error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("dispatcher: callback %s failed on %q: %v", e.Token, e.ActionType, e.Err)
}

// Unwrap returns the callback's error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrHandler.
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandler
}

// isProtocolError reports whether err already carries dispatcher semantics
// and must propagate unwrapped.
func isProtocolError(err error) bool {
	var he *HandlerError
	return errors.As(err, &he) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, ErrNotDispatching) ||
		errors.Is(err, ErrUnknownToken)
}
